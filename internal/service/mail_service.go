package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/pkg/config"
	"github.com/noah-isme/sma-attendance-portal/pkg/jobs"
	"github.com/noah-isme/sma-attendance-portal/pkg/mailer"
)

// JobTypeEnrollmentMail identifies the temporary password e-mail job.
const JobTypeEnrollmentMail = "enrollment_mail"

// EnrollmentMail is the payload of an enrollment e-mail job.
type EnrollmentMail struct {
	To       string
	Name     string
	Password string
}

// MailService delivers enrollment e-mails from a background worker pool.
type MailService struct {
	queue   *jobs.Queue
	mailer  mailer.Mailer
	appName string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMailService builds the service and its queue. Call Start before use.
func NewMailService(m mailer.Mailer, cfg config.MailConfig, appName string, metrics *MetricsService, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MailService{mailer: m, appName: appName, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("mail", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *MailService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains queued mail and stops the workers.
func (s *MailService) Stop() { s.queue.Stop() }

// QueueEnrollment schedules the temporary password e-mail.
func (s *MailService) QueueEnrollment(mail EnrollmentMail) error {
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeEnrollmentMail, Payload: mail})
}

func (s *MailService) handle(ctx context.Context, job jobs.Job) error {
	mail, ok := job.Payload.(EnrollmentMail)
	if !ok {
		s.metrics.RecordMailJob("invalid")
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	err := s.mailer.Send(ctx, EnrollmentMessage(s.appName, mail))
	if err != nil {
		s.metrics.RecordMailJob("failed")
		return err
	}
	s.metrics.RecordMailJob("sent")
	return nil
}

// EnrollmentMessage renders the e-mail carrying the temporary password.
func EnrollmentMessage(appName string, mail EnrollmentMail) mailer.Message {
	text := fmt.Sprintf("Hello %s,\n\nYou have been enrolled in %s.\nSign in with this e-mail address and the temporary password: %s\n\nPlease change it after your first sign-in.\n",
		mail.Name, appName, mail.Password)
	return mailer.Message{
		To:      mail.To,
		ToName:  mail.Name,
		Subject: "Your temporary password",
		Text:    text,
	}
}
