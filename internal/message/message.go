// internal/message/message.go
//
// Onatrix – outbound messaging queue.
//
// Context
//   The forms subsystem enqueues notifications (emails and webhooks) after a
//   submission is saved.  Delivery must never slow down or fail the HTTP
//   request, so jobs go onto a bounded in-memory channel drained by a small
//   worker pool.  A full queue drops the job and reports ErrQueueFull; the
//   caller logs it and moves on.
//
// Workflow
//   •  NewQueue(size, workers, senders…) builds the queue.
//   •  Run(ctx) starts the workers and blocks until ctx is done and the
//      backlog has drained.  cmd/web runs it inside the server errgroup.
//   •  EnqueueEmail / EnqueueWebhook are non-blocking.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/metrics"
)

// ErrQueueFull is returned when a job cannot be buffered.
var ErrQueueFull = errors.New("message queue full")

// ErrClosed is returned when enqueueing after Run has returned.
var ErrClosed = errors.New("message queue closed")

// Email represents a basic outbound email job.
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string // optional
}

// Webhook is a JSON POST to an external endpoint.
type Webhook struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// EmailSender delivers an Email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

// WebhookSender delivers a Webhook.
type WebhookSender interface {
	SendWebhook(ctx context.Context, hook Webhook) error
}

// job is one unit of work.  kind feeds logs and metrics.
type job struct {
	kind string
	ctx  context.Context // detached from the request, keeps its logger
	run  func(ctx context.Context) error
}

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 15 * time.Second

// Queue is safe for concurrent use.
type Queue struct {
	jobs    chan job
	workers int
	email   EmailSender
	hook    WebhookSender

	mu     sync.RWMutex
	closed bool
}

// NewQueue returns a queue buffering up to size jobs.  Either sender may be
// nil, in which case jobs of that kind are rejected at enqueue time.
func NewQueue(size, workers int, email EmailSender, hook WebhookSender) *Queue {
	if size < 1 {
		size = 64
	}
	if workers < 1 {
		workers = 2
	}
	return &Queue{
		jobs:    make(chan job, size),
		workers: workers,
		email:   email,
		hook:    hook,
	}
}

// EnqueueEmail buffers msg for delivery.
func (q *Queue) EnqueueEmail(ctx context.Context, msg Email) error {
	if q.email == nil {
		return fmt.Errorf("email: %w", errors.ErrUnsupported)
	}
	if len(msg.To) == 0 {
		return errors.New("email: no recipients")
	}
	return q.enqueue(ctx, "email", func(ctx context.Context) error {
		return q.email.SendEmail(ctx, msg)
	})
}

// EnqueueWebhook buffers hook for delivery.
func (q *Queue) EnqueueWebhook(ctx context.Context, hook Webhook) error {
	if q.hook == nil {
		return fmt.Errorf("webhook: %w", errors.ErrUnsupported)
	}
	if hook.URL == "" {
		return errors.New("webhook: empty URL")
	}
	return q.enqueue(ctx, "webhook", func(ctx context.Context) error {
		return q.hook.SendWebhook(ctx, hook)
	})
}

func (q *Queue) enqueue(ctx context.Context, kind string, run func(context.Context) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	j := job{kind: kind, ctx: logger.WithContext(context.Background(), logger.FromContext(ctx)), run: run}
	select {
	case q.jobs <- j:
		metrics.MessagesTotal.WithLabelValues(kind, "queued").Inc()
		return nil
	default:
		metrics.MessagesTotal.WithLabelValues(kind, "dropped").Inc()
		return ErrQueueFull
	}
}

// Run processes jobs until ctx is cancelled, then drains what is left.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range q.jobs {
				q.process(j)
			}
		}()
	}

	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	wg.Wait()
	return nil
}

func (q *Queue) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, sendTimeout)
	defer cancel()

	log := logger.FromContext(ctx)
	if err := j.run(ctx); err != nil {
		metrics.MessagesTotal.WithLabelValues(j.kind, "failed").Inc()
		log.Errorw("message delivery failed", "kind", j.kind, "err", err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(j.kind, "sent").Inc()
	log.Debugw("message delivered", "kind", j.kind)
}
