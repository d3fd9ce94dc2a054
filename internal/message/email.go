// internal/message/email.go
//
// Email senders: Resend for production, a log sender when no API key is set.

package message

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/yanizio/onatrix/internal/logger"
)

// resendEmails is the slice of resend.EmailsSvc used here.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers email through the Resend API.
type ResendSender struct {
	emails resendEmails
	from   string
}

// NewResendSender builds a sender for apiKey.  from is the envelope sender,
// e.g. "Onatrix <noreply@example.com>".
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{emails: resend.NewClient(apiKey).Emails, from: from}
}

// SendEmail implements EmailSender.
func (s *ResendSender) SendEmail(ctx context.Context, msg Email) error {
	resp, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	logger.FromContext(ctx).Infow("email sent", "provider", "resend", "id", resp.Id, "to", msg.To)
	return nil
}

// LogSender writes the email to the log instead of sending it.
type LogSender struct{}

// SendEmail implements EmailSender.
func (LogSender) SendEmail(ctx context.Context, msg Email) error {
	logger.FromContext(ctx).Infow("email (log only)",
		"to", msg.To, "subject", msg.Subject, "text_len", len(msg.Text))
	return nil
}
