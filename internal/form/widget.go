// internal/form/widget.go
//
// Onatrix – Forms subsystem: widget integration.
//
// Context
//   Page templates embed forms through the widget system:
//
//       {{ widget "callback/form" .Request (dict "values" .Values "errors" .Errors) }}
//
//   Widget adapts Render to the widget.Widget interface and mints a fresh
//   CSRF token on every render.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"html/template"
	"net/http"

	"github.com/yanizio/onatrix/internal/widget"
)

// Ensure compile-time compliance with widget.Widget.
var _ widget.Widget = (*Widget)(nil)

// Widget renders one Policy as a form.
type Widget struct {
	Key         string
	Policy      *Policy
	Action      string
	SubmitLabel string
	Signer      *Signer                                       // nil omits the token
	Choices     func(ctx context.Context) map[string][]Choice // nil renders empty selects
}

// ID implements widget.Widget.
func (w *Widget) ID() string { return w.Key }

// Render implements widget.Widget.  Recognised params:
//
//   - "values"     map[string]string – prefill
//   - "errors"     *FieldErrors      – field messages
//   - "formError"  string            – form-level message
//   - "returnPath" string            – originating page
func (w *Widget) Render(r *http.Request, params map[string]any) (template.HTML, error) {
	opts := RenderOptions{Action: w.Action, SubmitLabel: w.SubmitLabel}

	if v, ok := params["values"].(map[string]string); ok {
		opts.Values = v
	}
	if e, ok := params["errors"].(*FieldErrors); ok {
		opts.Errors = e
	}
	if s, ok := params["formError"].(string); ok {
		opts.FormError = s
	}
	if s, ok := params["returnPath"].(string); ok {
		opts.ReturnPath = s
	}

	if w.Choices != nil {
		opts.Choices = w.Choices(r.Context())
	}
	if w.Signer != nil {
		tok, err := w.Signer.Token()
		if err != nil {
			return "", err
		}
		opts.CSRFToken = tok
	}

	return Render(w.Policy, opts)
}
