// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the chain, right after the request logger and
before the rate limiter and components.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Resolves the client IP.  Behind a trusted proxy this is the left-most
     valid address in X-Forwarded-For or X-Real-IP, otherwise
     `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores a `*RequestInfo` value in `request.Context` under an
     unexported key, so components, widgets, and templates can access
     UA, Geo, URL, and timestamp attributes without reparsing.

Instrumentation
---------------
At debug level each invocation logs the client IP, country, browser,
device, bot flag, and path.

Notes
-----
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/onatrix/internal/logger"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Options tune Enrich.
type Options struct {
	Geo        *GeoDB // nil skips geolocation
	TrustProxy bool   // honour X-Forwarded-For / X-Real-IP
}

// Enrich returns middleware that attaches *RequestInfo and forwards.
func Enrich(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, opts.TrustProxy)

			info := &RequestInfo{
				UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       opts.Geo.Lookup(ip),
				URL:       r.URL,
				Timestamp: time.Now().UTC(),
			}

			logger.FromContext(r.Context()).Debugw("request info",
				"ip", info.ClientIP(),
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
			)

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

// ClientKey is a rate-limiter key function: the resolved client IP, or the
// raw RemoteAddr when Enrich has not run.
func ClientKey(r *http.Request) string {
	if ip := FromContext(r.Context()).ClientIP(); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the client address.  Forwarding headers are consulted
// only when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
