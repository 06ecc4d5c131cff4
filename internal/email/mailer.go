// Package email delivers report emails.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
)

// ErrInvalidMessage means a message is missing a recipient or subject.
var ErrInvalidMessage = errors.New("invalid email message")

// Attachment is a file sent with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a single outbound email.
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Validate checks the fields every provider needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidMessage)
	}
	return nil
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a Mailer.
type Config struct {
	Domain string
	APIKey string
	From   string
}

// New returns a Mailgun mailer when domain and key are set, otherwise a
// mailer that only logs.
func New(cfg Config, logger *slog.Logger) Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Domain == "" || cfg.APIKey == "" {
		logger.Warn("MAILGUN_DOMAIN or MAILGUN_API_KEY not set, emails will be logged only")
		return &LogMailer{Logger: logger}
	}
	return NewMailgun(cfg, logger)
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs msg.
func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.Logger.Info("email not sent (log mailer)",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send and nothing is recorded.
	Err error
}

// Send records msg.
func (r *Recorder) Send(ctx context.Context, msg Message) error {
	if r.Err != nil {
		return r.Err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

var reportEmailTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><body style="font-family: Helvetica, Arial, sans-serif; color: #1f2933;">
<p>Hi {{.Name}},</p>
<p>Your interview preparation report for <strong>{{.Title}}</strong> is ready. You'll find the PDF attached.</p>
<p>Good luck with your interview!</p>
<p>The InterviewAce team</p>
</body></html>`))

// ReportFilename is the attachment name for report PDFs.
const ReportFilename = "report.pdf"

// ReportEmail builds the "your report is ready" message with the PDF attached.
func ReportEmail(to, name, title string, pdf []byte) (Message, error) {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	if strings.TrimSpace(title) == "" {
		title = "your interview"
	}

	var buf bytes.Buffer
	if err := reportEmailTemplate.Execute(&buf, struct{ Name, Title string }{name, title}); err != nil {
		return Message{}, fmt.Errorf("failed to render report email: %w", err)
	}

	return Message{
		To:      to,
		Subject: "Your InterviewAce report: " + title,
		Text: fmt.Sprintf("Hi %s,\n\nYour interview preparation report for %s is ready. The PDF is attached.\n\nGood luck!\nThe InterviewAce team\n",
			name, title),
		HTML:        buf.String(),
		Attachments: []Attachment{{Filename: ReportFilename, Content: pdf}},
	}, nil
}
