// internal/form/actions.go
//
// Onatrix – Forms subsystem: post-submit actions.
//
// Context
//   After a submission is saved the component calls Actions.Execute, which
//   queues an email and/or a webhook through the messaging subsystem so the
//   HTTP request returns promptly.  Action failures are logged, never
//   returned, keeping the visitor's flow uninterrupted.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/message"
)

// Enqueuer is the slice of *message.Queue used by Actions.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, msg message.Email) error
	EnqueueWebhook(ctx context.Context, hook message.Webhook) error
}

// Actions configures what happens after a successful save.  Empty EmailTo or
// WebhookURL disables that action.
type Actions struct {
	Queue      Enqueuer
	EmailTo    []string
	Subject    string // default "New form submission: <formID>"
	WebhookURL string
}

// webhookPayload is the JSON body POSTed to WebhookURL.
type webhookPayload struct {
	Form   string    `json:"form"`
	SentAt time.Time `json:"sentAt"`
	Data   any       `json:"data"`
}

// Execute runs every configured action for formID.  data must be
// JSON-encodable.
func (a *Actions) Execute(ctx context.Context, formID string, data any) {
	if a == nil || a.Queue == nil {
		return
	}
	if len(a.EmailTo) > 0 {
		if err := a.runEmail(ctx, formID, data); err != nil {
			logErr(ctx, formID, "email", err)
		}
	}
	if a.WebhookURL != "" {
		if err := a.runWebhook(ctx, formID, data); err != nil {
			logErr(ctx, formID, "webhook", err)
		}
	}
}

// -----------------------------------------------------------------------------
// Email action
// -----------------------------------------------------------------------------

func (a *Actions) runEmail(ctx context.Context, formID string, data any) error {
	subject := a.Subject
	if subject == "" {
		subject = fmt.Sprintf("New form submission: %s", formID)
	}
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return a.Queue.EnqueueEmail(ctx, message.Email{
		To:      a.EmailTo,
		Subject: subject,
		Text:    string(body),
	})
}

// -----------------------------------------------------------------------------
// Webhook action
// -----------------------------------------------------------------------------

func (a *Actions) runWebhook(ctx context.Context, formID string, data any) error {
	payload, err := json.Marshal(webhookPayload{Form: formID, SentAt: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}
	return a.Queue.EnqueueWebhook(ctx, message.Webhook{URL: a.WebhookURL, Body: payload})
}

// -----------------------------------------------------------------------------
// Logging helpers
// -----------------------------------------------------------------------------

func logErr(ctx context.Context, formID, action string, err error) {
	logger.FromContext(ctx).Errorw("form action failed",
		"form", formID, "action", action, "err", err)
}
