package notify

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/mail"
	"github.com/bigredeye/catalystx/internal/models"
)

type StatusMailer interface {
	SendApplicationStatus(e mail.StatusEmail) error
}

// EmailStatus maps a stored decision onto the wording used in student emails.
func EmailStatus(status models.ApplicationStatus) (string, error) {
	switch status {
	case models.ApplicationStatusAccepted:
		return mail.StatusAccepted, nil
	case models.ApplicationStatusRejected:
		return mail.StatusNotSelected, nil
	default:
		return "", errors.Errorf("No email for application status %q", status)
	}
}

// StatusEmailFor expects the application to carry its student and project with its professor.
func StatusEmailFor(app *models.Application, decided time.Time) (mail.StatusEmail, error) {
	status, err := EmailStatus(app.Status)
	if err != nil {
		return mail.StatusEmail{}, err
	}
	return mail.StatusEmail{
		StudentEmail:    app.Student.Email,
		StudentName:     app.Student.Name,
		OpportunityName: app.Project.Title,
		CompanyName:     app.Project.Professor.Name,
		Status:          status,
		DecisionDate:    decided,
	}, nil
}

// Notifier sends decision emails in the background, one goroutine per email.
type Notifier struct {
	mailer StatusMailer
	logger *zap.Logger

	wg     sync.WaitGroup
	sent   atomic.Int64
	failed atomic.Int64

	now func() time.Time
}

func NewNotifier(logger *zap.Logger, mailer StatusMailer) *Notifier {
	return &Notifier{
		mailer: mailer,
		logger: logger.With(lf.Module("notify")),
		now:    time.Now,
	}
}

func (n *Notifier) StatusChanged(app *models.Application) error {
	email, err := StatusEmailFor(app, n.now())
	if err != nil {
		return err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.mailer.SendApplicationStatus(email); err != nil {
			n.failed.Inc()
			n.logger.Error("Error sending application status email",
				lf.ApplicationID(app.ID),
				lf.Email(email.StudentEmail),
				zap.Error(err),
			)
			return
		}
		n.sent.Inc()
		n.logger.Info("Application status email sent successfully",
			lf.ApplicationID(app.ID),
			lf.Email(email.StudentEmail),
		)
	}()
	return nil
}

// Wait blocks until every in-flight email has been handed to the mailer.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) Sent() int64 {
	return n.sent.Load()
}

func (n *Notifier) Failed() int64 {
	return n.failed.Load()
}
