// components/callback/callback.go
//
// Callback-request component.
//
// Context
// -------
// One form, four fields (Name, Email, Phone, SelectedOption).  The component
// owns the page that shows the form, the POST handler that validates and
// saves submissions, the JSON policy endpoint, and the browser script that
// mirrors the server's rules.
//
// Collaborators are passed in through Deps.  Nothing here reads globals, so
// tests can swap any of them.
//
// Routes
// ------
//   GET  /callback                   – page with the form
//   POST /callback                   – submission handler
//   GET  /callback/policy.json       – active validation policy
//   GET  /assets/js/callback-form.js – client validator
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package callback

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cb "github.com/yanizio/onatrix/internal/callback"
	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/middleware"
	"github.com/yanizio/onatrix/internal/page"
	"github.com/yanizio/onatrix/internal/view"
	"github.com/yanizio/onatrix/internal/widget"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets/callback-form.js
var clientScript []byte

const (
	// Name is the component and template namespace.
	Name = "callback"
	// WidgetKey is the form widget's registry key.
	WidgetKey = "callback/form"

	pagePath   = "/callback"
	policyPath = "/callback/policy.json"
	scriptPath = "/assets/js/callback-form.js"

	defaultTitle = "Request a callback"
)

//
// Collaborators
//

// Saver persists a validated request.  false reports a handled persistence
// failure; an error is a fault the handler does not recover from.
type Saver interface {
	Save(ctx context.Context, rec *cb.Request) (bool, error)
}

// PageResolver identifies the page a submission came from.
type PageResolver interface {
	Current(r *http.Request) page.Page
}

// OptionsProvider supplies the SelectedOption choices.
type OptionsProvider interface {
	Options(ctx context.Context) []cb.Option
}

// ActionRunner runs post-save actions.  Failures are its own business.
type ActionRunner interface {
	Execute(ctx context.Context, formID string, data any)
}

// Deps bundles everything the component needs.  Policy, Saver, Pages,
// Options, and View are required.
type Deps struct {
	Policy  *form.Policy
	Saver   Saver
	Pages   PageResolver
	Options OptionsProvider
	View    *view.Engine
	Widgets *widget.Registry // optional; the form widget is registered here

	Signer        *form.Signer            // optional; renders csrf_token
	RequireCSRF   bool                    // reject posts without a valid token
	StrictOptions bool                    // SelectedOption must be a listed value
	Actions       ActionRunner            // optional
	Limiter       *middleware.RateLimiter // optional; guards POST only
	Now           func() time.Time        // optional; defaults to time.Now
}

// Component implements component.Component.
type Component struct {
	Deps
	widget *form.Widget
}

// New validates deps, registers the form widget, and mounts the templates.
func New(d Deps) (*Component, error) {
	switch {
	case d.Policy == nil:
		return nil, errors.New("callback: nil Policy")
	case d.Saver == nil:
		return nil, errors.New("callback: nil Saver")
	case d.Pages == nil:
		return nil, errors.New("callback: nil PageResolver")
	case d.Options == nil:
		return nil, errors.New("callback: nil OptionsProvider")
	case d.View == nil:
		return nil, errors.New("callback: nil View")
	case d.RequireCSRF && d.Signer == nil:
		return nil, errors.New("callback: RequireCSRF needs a Signer")
	}
	if err := requireFields(d.Policy); err != nil {
		return nil, err
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	c := &Component{Deps: d}
	c.widget = &form.Widget{
		Key:         WidgetKey,
		Policy:      d.Policy,
		Action:      pagePath,
		SubmitLabel: "Request callback",
		Signer:      d.Signer,
		Choices:     c.choices,
	}
	if d.Widgets != nil {
		d.Widgets.Register(c.widget)
	}

	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	d.View.Mount(Name, sub)
	return c, nil
}

// requireFields rejects a policy that would let a request through with one
// of its stored fields missing or optional.
func requireFields(p *form.Policy) error {
	for _, name := range []string{cb.FieldName, cb.FieldEmail, cb.FieldPhone, cb.FieldSelectedOption} {
		f := p.Field(name)
		switch {
		case f == nil:
			return fmt.Errorf("callback: policy %q has no %s field", p.Name, name)
		case !f.Required:
			return fmt.Errorf("callback: policy %q must mark %s required", p.Name, name)
		}
	}
	return nil
}

// Name implements component.Component.
func (c *Component) Name() string { return Name }

// Migrations implements component.Component.  Schema belongs to the store.
func (c *Component) Migrations() []string { return nil }

// Routes implements component.Component.
func (c *Component) Routes(r chi.Router) {
	r.Get(pagePath, c.showPage)
	r.Get(policyPath, c.servePolicy)
	r.Get(scriptPath, serveScript)

	post := http.HandlerFunc(c.Submit)
	if c.Limiter != nil {
		r.With(c.Limiter.Middleware(http.HandlerFunc(c.rateLimited))).Post(pagePath, post)
		return
	}
	r.Post(pagePath, post)
}

// choices adapts the OptionsProvider to the renderer's select entries.
func (c *Component) choices(ctx context.Context) map[string][]form.Choice {
	opts := c.Options.Options(ctx)
	out := make([]form.Choice, len(opts))
	for i, o := range opts {
		out[i] = form.Choice{Value: o.Value, Label: o.Label}
	}
	return map[string][]form.Choice{cb.FieldSelectedOption: out}
}
