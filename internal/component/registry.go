// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name>.  cmd/web builds it
// with its dependencies, registers it here, runs Migrations() for every
// registered component, and finally lets every component register its
// Routes() on the root router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes()
// registers BOTH page and API endpoints on the shared router, e.g:
//
//	func (c *Component) Routes(r chi.Router) {
//	    r.Get("/callback", c.page)
//	    r.Post("/callback", c.submit)
//	}
type Component interface {
	Name() string
	Routes(r chi.Router)
	Migrations() []string
}

// Registry holds components by name.  The zero value is ready to use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// Register adds c, replacing any component with the same name.
func (r *Registry) Register(c Component) {
	r.mu.Lock()
	if r.components == nil {
		r.components = make(map[string]Component)
	}
	r.components[c.Name()] = c
	r.mu.Unlock()
}

// All returns every registered component sorted by name, so mount and
// migration order is stable between boots.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll registers every component's routes on root.
func (r *Registry) MountAll(root chi.Router) {
	for _, c := range r.All() {
		c.Routes(root)
	}
}
