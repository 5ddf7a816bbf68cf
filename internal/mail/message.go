package mail

const (
	LogoFileName  = "logo-master.png"
	LogoContentID = "logo@catalystx"
)

// Inline is a file referenced from the html body through cid:ContentID.
type Inline struct {
	Name      string
	ContentID string
	Data      []byte
}

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
	Inline  []Inline
}

type Sender interface {
	Send(msg *Message) error
}
