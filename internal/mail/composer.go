package mail

import (
	"bytes"
	"embed"
	htmltpl "html/template"
	"io"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/pkg/errors"
)

//go:embed templates
var templatesFS embed.FS

const (
	StatusAccepted    = "ACCEPTED"
	StatusNotSelected = "NOT_SELECTED"

	DecisionDateLayout = "January 2, 2006"
)

type StatusEmail struct {
	StudentEmail    string
	StudentName     string
	OpportunityName string
	CompanyName     string
	Status          string
	DecisionDate    time.Time
}

type otpVars struct {
	Code string
	Logo bool
	Year int
}

type statusVars struct {
	StudentName      string
	OpportunityName  string
	CompanyName      string
	DecisionDate     string
	StatusLabel      string
	StatusTitle      string
	StatusColor      htmltpl.CSS
	StatusBackground htmltpl.CSS
	Accepted         bool
	Logo             bool
	Year             int
}

type Composer struct {
	user string
	logo *Inline

	otpHTML    *htmltpl.Template
	otpText    *texttpl.Template
	statusHTML *htmltpl.Template
	statusText *texttpl.Template

	now func() time.Time
}

// NewComposer parses the embedded templates. logo may be nil.
func NewComposer(user string, logo *Inline) (*Composer, error) {
	c := &Composer{user: user, logo: logo, now: time.Now}

	var err error
	if c.otpHTML, err = htmltpl.ParseFS(templatesFS, "templates/otp.html"); err != nil {
		return nil, errors.Wrap(err, "Failed to parse otp html template")
	}
	if c.otpText, err = texttpl.ParseFS(templatesFS, "templates/otp.txt"); err != nil {
		return nil, errors.Wrap(err, "Failed to parse otp text template")
	}
	if c.statusHTML, err = htmltpl.ParseFS(templatesFS, "templates/status.html"); err != nil {
		return nil, errors.Wrap(err, "Failed to parse status html template")
	}
	if c.statusText, err = texttpl.ParseFS(templatesFS, "templates/status.txt"); err != nil {
		return nil, errors.Wrap(err, "Failed to parse status text template")
	}
	return c, nil
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func render(tpl executor, vars any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *Composer) inline() []Inline {
	if c.logo == nil {
		return nil
	}
	return []Inline{*c.logo}
}

func (c *Composer) OTP(to, code string) (*Message, error) {
	vars := otpVars{Code: code, Logo: c.logo != nil, Year: c.now().Year()}

	html, err := render(c.otpHTML, vars)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to render otp email")
	}
	text, err := render(c.otpText, vars)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to render otp email")
	}

	return &Message{
		From:    "Career CatalystX <" + c.user + ">",
		To:      to,
		Subject: "Career CatalystX Verification Code",
		Text:    strings.TrimSuffix(text, "\n"),
		HTML:    html,
		Inline:  c.inline(),
	}, nil
}

func (c *Composer) ApplicationStatus(e StatusEmail) (*Message, error) {
	vars := statusVars{
		StudentName:     e.StudentName,
		OpportunityName: e.OpportunityName,
		CompanyName:     e.CompanyName,
		Logo:            c.logo != nil,
		Year:            c.now().Year(),
	}

	decided := e.DecisionDate
	if decided.IsZero() {
		decided = c.now()
	}
	vars.DecisionDate = decided.Format(DecisionDateLayout)

	switch e.Status {
	case StatusAccepted:
		vars.Accepted = true
		vars.StatusLabel = "Accepted"
		vars.StatusTitle = "Application Accepted"
		vars.StatusColor = "#059669"
		vars.StatusBackground = "#f0fdf4"
	case StatusNotSelected:
		vars.StatusLabel = "Not Selected"
		vars.StatusTitle = "Application Update"
		vars.StatusColor = "#4f46e5"
		vars.StatusBackground = "#f8fafc"
	default:
		return nil, errors.Errorf("Unknown email status %q", e.Status)
	}

	html, err := render(c.statusHTML, vars)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to render status email")
	}
	text, err := render(c.statusText, vars)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to render status email")
	}

	return &Message{
		From:    "Career CatalystX Platform <" + c.user + ">",
		To:      e.StudentEmail,
		Subject: "Application Status Update - " + e.OpportunityName + " Position",
		Text:    strings.TrimSpace(text),
		HTML:    html,
		Inline:  c.inline(),
	}, nil
}

func (c *Composer) Plain(to, title, message string) *Message {
	return &Message{
		From:    c.user,
		To:      to,
		Subject: title,
		Text:    message,
	}
}
