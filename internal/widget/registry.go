// internal/widget/registry.go
//
// Widget registry and lookup helpers.
//
// A **Widget** is a reusable view fragment rendered inside a page.  Each
// component registers its widgets on the shared Registry while it is being
// wired in cmd/web.
//
// The key used for registration is `<component>/<widget>`, e.g.
// "callback/form", and must be returned by the widget's `ID` method.
//
// Template authors can embed a widget with:
//
//	{{ widget "callback/form" .Request (dict "values" .Values) }}
//
// Params are optional.  The helper looks up the widget, invokes `Render`,
// and returns `template.HTML`.
package widget

import (
	"html/template"
	"net/http"
	"sort"
	"sync"
)

// Widget represents a view fragment that can be embedded inside any page
// template.  Params are an arbitrary key-value map passed from the template
// and may be nil.
//
// Errors should be returned, not written to the response, so the calling
// helper can decide how to surface the failure.
//
// Render MUST be concurrency-safe; multiple goroutines may call it.
type Widget interface {
	ID() string
	Render(r *http.Request, params map[string]any) (template.HTML, error)
}

// Registry holds widgets by key.  The zero value is ready to use.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]Widget
}

// Register adds w.  A later registration under the same key wins.
func (r *Registry) Register(w Widget) {
	r.mu.Lock()
	if r.widgets == nil {
		r.widgets = make(map[string]Widget)
	}
	r.widgets[w.ID()] = w
	r.mu.Unlock()
}

// Lookup returns the widget or nil.
func (r *Registry) Lookup(key string) Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.widgets[key]
}

// Keys returns the registered keys, sorted.  Useful for tests and startup logs.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.widgets))
	for k := range r.widgets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
