// Package mailer delivers transactional e-mail through SendGrid or the log.
package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is one outgoing e-mail.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the driver named in cfg.
func New(cfg config.MailConfig, appName string, logger *zap.Logger) Mailer {
	if cfg.Driver == config.DriverSendgrid && cfg.APIKey != "" {
		return NewSendgrid(cfg.APIKey, appName, cfg.From, sendgridHost)
	}
	return NewLog(logger)
}

// Sendgrid posts messages to the SendGrid v3 API.
type Sendgrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgrid builds a SendGrid mailer. host is overridable for tests.
func NewSendgrid(key, appName, fromEmail, host string) *Sendgrid {
	return &Sendgrid{
		key:        key,
		host:       host,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

// Send delivers msg synchronously; callers run it from the job queue.
func (s *Sendgrid) Send(ctx context.Context, msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	logger *zap.Logger
}

// NewLog builds the development mailer.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Send logs the recipient and subject at info level. The body may carry a
// one-time password and is never logged.
func (l *Log) Send(_ context.Context, msg Message) error {
	l.logger.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Text)),
	)
	return nil
}
