// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// mounting promhttp.Handler() in main.go is enough to expose them on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for SubmissionsTotal.
const (
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeSaveFailed  = "save_failed"
	OutcomeSaved       = "saved"
	OutcomeFault       = "fault"
	OutcomeRateLimited = "rate_limited"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_submissions_total",
			Help: "Callback form submissions by outcome and caller kind.",
		}, []string{"outcome", "caller"})

	SaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "callback_save_duration_seconds",
			Help:    "Time spent in the persistence collaborator per save.",
			Buckets: prometheus.DefBuckets,
		})

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_jobs_total",
			Help: "Outbound notification jobs by kind and state (queued, dropped, sent, failed).",
		}, []string{"kind", "state"})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		SaveDuration,
		MessagesTotal,
		RateLimitedTotal,
	)
}
