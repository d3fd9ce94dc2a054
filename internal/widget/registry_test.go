package widget

import (
	"html/template"
	"net/http"
	"testing"
)

type stub struct {
	id, html string
}

func (s stub) ID() string { return s.id }
func (s stub) Render(*http.Request, map[string]any) (template.HTML, error) {
	return template.HTML(s.html), nil
}

func TestRegistry_ZeroValue(t *testing.T) {
	var r Registry
	if r.Lookup("callback/form") != nil {
		t.Fatal("empty registry returned a widget")
	}

	r.Register(stub{"callback/form", "v1"})
	r.Register(stub{"about/map", "map"})
	r.Register(stub{"callback/form", "v2"})

	w := r.Lookup("callback/form")
	if w == nil {
		t.Fatal("widget not found")
	}
	if out, _ := w.Render(nil, nil); out != "v2" {
		t.Errorf("later registration should win, got %q", out)
	}
	if got := r.Keys(); len(got) != 2 || got[0] != "about/map" || got[1] != "callback/form" {
		t.Errorf("Keys = %v", got)
	}
}
