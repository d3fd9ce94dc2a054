// components/callback/respond.go
//
// Caller-kind aware responses.
//
// Context
// -------
// Every outcome of a submission (invalid input, failed save, success, or
// rate limiting) must answer a script caller in JSON and a browser with a
// page.  The caller kind is decided ONCE per request by newResponder and
// the returned responder is used for every branch, so the two shapes can
// never drift apart.
//
// Programmatic callers send `X-Requested-With: XMLHttpRequest` or a JSON
// Content-Type.  Everyone else is a browser.

package callback

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/page"
)

// User-facing messages.
const (
	msgSuccess     = "Form submitted successfully!"
	msgSaveFailed  = "Failed to save callback request"
	msgCSRF        = "Security token invalid.  Please refresh and try again."
	msgRateLimited = "Too many requests.  Please wait a moment and try again."
)

// Caller kinds, also used as the metrics label.
const (
	callerScript  = "script"
	callerBrowser = "browser"
)

// isProgrammatic reports whether r comes from a script.
func isProgrammatic(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// responder answers one request.  vals are the cleaned posted values, used
// by the browser variant to prefill the re-rendered form.
type responder interface {
	kind() string
	invalid(errs *form.FieldErrors, vals map[string]string)
	failed(msg string, vals map[string]string)
	succeeded()
	limited()
}

// newResponder picks the responder for r.  pg is the originating page.
func (c *Component) newResponder(w http.ResponseWriter, r *http.Request, pg page.Page) responder {
	if isProgrammatic(r) {
		return &jsonResponder{w: w, r: r}
	}
	return &pageResponder{c: c, w: w, r: r, pg: pg}
}

//
// JSON
//

// jsonResult is the wire shape for script callers.  Exactly one of Errors
// or Message is set.
type jsonResult struct {
	Success bool              `json:"success"`
	Errors  *form.FieldErrors `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
}

type jsonResponder struct {
	w http.ResponseWriter
	r *http.Request
}

func (j *jsonResponder) kind() string { return callerScript }

func (j *jsonResponder) invalid(errs *form.FieldErrors, _ map[string]string) {
	j.write(http.StatusOK, jsonResult{Success: false, Errors: errs})
}

func (j *jsonResponder) failed(msg string, _ map[string]string) {
	j.write(http.StatusOK, jsonResult{Success: false, Message: msg})
}

func (j *jsonResponder) succeeded() {
	j.write(http.StatusOK, jsonResult{Success: true, Message: msgSuccess})
}

func (j *jsonResponder) limited() {
	j.write(http.StatusTooManyRequests, jsonResult{Success: false, Message: msgRateLimited})
}

func (j *jsonResponder) write(status int, body jsonResult) {
	j.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	j.w.Header().Set("Cache-Control", "no-store")
	j.w.WriteHeader(status)
	if err := json.NewEncoder(j.w).Encode(body); err != nil {
		logger.FromContext(j.r.Context()).Warnw("json response write failed", "err", err)
	}
}

//
// Browser
//

type pageResponder struct {
	c  *Component
	w  http.ResponseWriter
	r  *http.Request
	pg page.Page
}

func (p *pageResponder) kind() string { return callerBrowser }

func (p *pageResponder) invalid(errs *form.FieldErrors, vals map[string]string) {
	p.c.renderPage(p.w, p.r, http.StatusOK, p.pg, pageBody{Values: vals, Errors: errs})
}

func (p *pageResponder) failed(msg string, vals map[string]string) {
	p.c.renderPage(p.w, p.r, http.StatusOK, p.pg, pageBody{Values: vals, FormError: msg})
}

// succeeded redirects with 303 so a refresh does not resubmit.
func (p *pageResponder) succeeded() {
	http.Redirect(p.w, p.r, p.pg.Path, http.StatusSeeOther)
}

func (p *pageResponder) limited() {
	p.c.renderPage(p.w, p.r, http.StatusTooManyRequests, p.pg, pageBody{FormError: msgRateLimited})
}
