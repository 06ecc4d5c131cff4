package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer sends through the Mailgun API.
type MailgunMailer struct {
	mg     mailgun.Mailgun
	from   string
	logger *slog.Logger
}

// NewMailgun creates a Mailgun-backed mailer.
func NewMailgun(cfg Config, logger *slog.Logger) *MailgunMailer {
	return &MailgunMailer{
		mg:     mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers msg.
func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	message := m.mg.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	for _, a := range msg.Attachments {
		message.AddBufferAttachment(a.Filename, a.Content)
	}

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via mailgun: %w", err)
	}
	m.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "mailgun_id", id)
	return nil
}
