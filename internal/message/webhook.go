// internal/message/webhook.go
//
// Webhook sender: POSTs the job body as JSON and treats any non-2xx status
// as a failure.

package message

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPSender delivers webhooks with an *http.Client.
type HTTPSender struct {
	Client *http.Client // nil uses http.DefaultClient
}

// SendWebhook implements WebhookSender.
func (s HTTPSender) SendWebhook(ctx context.Context, hook Webhook) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(hook.Body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}

	cli := s.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", hook.URL, resp.StatusCode)
	}
	return nil
}
