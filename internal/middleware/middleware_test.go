package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		tls    bool
		proto  string
		status int
	}{
		{"plain http redirects", "example.com", false, "", http.StatusPermanentRedirect},
		{"tls passes", "example.com", true, "", http.StatusNoContent},
		{"proxy https passes", "example.com", false, "https", http.StatusNoContent},
		{"localhost passes", "localhost:8080", false, "", http.StatusNoContent},
		{"loopback ip passes", "127.0.0.1:8080", false, "", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/callback?x=1", nil)
			r.Host = tc.host
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			w := httptest.NewRecorder()
			ForceHTTPS(okHandler).ServeHTTP(w, r)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.status == http.StatusPermanentRedirect {
				if loc := w.Header().Get("Location"); loc != "https://example.com/callback?x=1" {
					t.Fatalf("Location = %q", loc)
				}
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	Security(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
	} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestRateLimiter_PerClientBurst(t *testing.T) {
	key := func(r *http.Request) string { return r.RemoteAddr }
	lim := NewRateLimiter(1, 2, key)

	rejected := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := lim.Middleware(rejected)(okHandler)

	do := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/callback", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if c := do("10.0.0.1:1"); c != http.StatusNoContent {
		t.Fatalf("1st = %d", c)
	}
	if c := do("10.0.0.1:1"); c != http.StatusNoContent {
		t.Fatalf("2nd = %d", c)
	}
	if c := do("10.0.0.1:1"); c != http.StatusTooManyRequests {
		t.Fatalf("3rd = %d, want 429", c)
	}
	if c := do("10.0.0.2:1"); c != http.StatusNoContent {
		t.Fatalf("other client = %d, want its own bucket", c)
	}
}
