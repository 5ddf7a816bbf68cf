package mail

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/metrics"
)

const (
	KindOTP    = "otp"
	KindStatus = "application_status"
	KindPlain  = "plain"
)

// Mailer composes and sends transactional emails. Send errors are returned to the caller unretried.
type Mailer struct {
	composer *Composer
	sender   Sender
	logger   *zap.Logger
}

func NewMailer(logger *zap.Logger, composer *Composer, sender Sender) *Mailer {
	return &Mailer{
		composer: composer,
		sender:   sender,
		logger:   logger.With(lf.Module("mail")),
	}
}

func (m *Mailer) deliver(kind string, msg *Message) error {
	err := m.sender.Send(msg)
	if err != nil {
		diag := DiagnoseSMTP(err)
		m.logger.Error("Error sending email",
			zap.String("kind", kind),
			lf.Email(msg.To),
			zap.String("diag", diag.Code),
			zap.Bool("temporary", diag.Temporary),
			zap.Error(err),
		)
		metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		return errors.Wrapf(err, "Failed to send %s email", kind)
	}

	metrics.EmailsTotal.WithLabelValues(kind, "sent").Inc()
	m.logger.Info("Email sent successfully", zap.String("kind", kind), lf.Email(msg.To))
	return nil
}

func (m *Mailer) SendOTP(email, code string) error {
	msg, err := m.composer.OTP(email, code)
	if err != nil {
		return err
	}
	return m.deliver(KindOTP, msg)
}

func (m *Mailer) SendApplicationStatus(e StatusEmail) error {
	msg, err := m.composer.ApplicationStatus(e)
	if err != nil {
		return err
	}
	return m.deliver(KindStatus, msg)
}

func (m *Mailer) SendEmail(to, title, message string) error {
	return m.deliver(KindPlain, m.composer.Plain(to, title, message))
}
