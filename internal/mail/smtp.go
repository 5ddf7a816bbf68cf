package mail

import (
	"bytes"
	"crypto/tls"
	"io"
	"time"

	gomail "github.com/go-mail/mail"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	TLSModeSSL      = "ssl"
	TLSModeStartTLS = "starttls"
	TLSModeNone     = "none"
)

type SMTPConfig struct {
	Host               string
	Port               int
	User               string
	Pass               string
	TLSMode            string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// SMTPSender relays messages through a single authenticated SMTP server.
type SMTPSender struct {
	config SMTPConfig
	logger *zap.Logger

	// transport replaces the dialer when set.
	transport gomail.Sender
}

func NewSMTPSender(logger *zap.Logger, config SMTPConfig) *SMTPSender {
	if config.TLSMode == "" {
		config.TLSMode = TLSModeSSL
	}
	return &SMTPSender{
		config: config,
		logger: logger.With(zap.String("host", config.Host), zap.Int("port", config.Port)),
	}
}

func buildMessage(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBody("text/html", msg.HTML)
		} else {
			m.AddAlternative("text/html", msg.HTML)
		}
	}

	for _, inline := range msg.Inline {
		data := inline.Data
		m.Embed(inline.Name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(data))
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-ID": {"<" + inline.ContentID + ">"},
			}),
		)
	}
	return m
}

func (s *SMTPSender) dialer() *gomail.Dialer {
	d := gomail.NewDialer(s.config.Host, s.config.Port, s.config.User, s.config.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.config.Host,
		InsecureSkipVerify: s.config.InsecureSkipVerify,
	}
	if s.config.Timeout > 0 {
		d.Timeout = s.config.Timeout
	}

	switch s.config.TLSMode {
	case TLSModeSSL:
		d.SSL = true
	case TLSModeNone:
		d.StartTLSPolicy = gomail.NoStartTLS
	default:
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}
	return d
}

func (s *SMTPSender) Send(msg *Message) error {
	m := buildMessage(msg)

	var err error
	if s.transport != nil {
		err = gomail.Send(s.transport, m)
	} else {
		err = s.dialer().DialAndSend(m)
	}
	if err != nil {
		return errors.Wrap(err, "smtp send")
	}

	s.logger.Debug("Relayed email", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
