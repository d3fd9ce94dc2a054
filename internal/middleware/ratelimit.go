// internal/middleware/ratelimit.go
//
// Per-client token-bucket limiter.
//
// Each client key (normally the client IP) gets its own rate.Limiter.
// Buckets live in a bounded LRU, so a flood of distinct addresses evicts
// the quietest clients instead of growing memory without limit.  Rejected
// requests are handed to the caller-supplied handler, which lets the form
// component answer in JSON or HTML as appropriate.

package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/yanizio/onatrix/internal/cache"
	"github.com/yanizio/onatrix/internal/metrics"
)

// maxClients bounds how many buckets are remembered.
const maxClients = 10_000

// RateLimiter hands out one bucket per key.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	key     func(*http.Request) string
	buckets *cache.LRU[string, *rate.Limiter]
}

// NewRateLimiter allows perMinute requests per key with the given burst.
// key extracts the client identity from a request.
func NewRateLimiter(perMinute float64, burst int, key func(*http.Request) string) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		key:     key,
		buckets: cache.New[string, *rate.Limiter](maxClients),
	}
}

// Allow reports whether the request may proceed and consumes a token.
func (l *RateLimiter) Allow(r *http.Request) bool {
	b := l.buckets.GetOrAdd(l.key(r), func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})
	return b.Allow()
}

// Middleware wraps next.  Requests over the limit go to rejected instead.
func (l *RateLimiter) Middleware(rejected http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r) {
				metrics.RateLimitedTotal.Inc()
				rejected.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
