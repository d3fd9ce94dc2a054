// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (e-mails, tests).
//
// Lookup precedence (first hit wins):
//   1. <templates_dir>/<comp>/<name>.html      (operator override)
//   2. the component's embedded templates      (registered with Mount)
//
// The layout follows the same rule: <templates_dir>/layout.html, then the
// embedded templates/layout.html.  A page template defines "title" and
// "content"; the layout pulls both in.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/yanizio/onatrix/internal/cache"
	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/requestinfo"
	"github.com/yanizio/onatrix/internal/widget"
)

//go:embed templates/*.html
var baseFS embed.FS

// Data is what every page template receives.
type Data struct {
	Request *http.Request
	Info    *requestinfo.RequestInfo
	Title   string
	Body    any // component-specific payload
}

// Engine renders component templates.  Safe for concurrent use.
type Engine struct {
	overrideDir string
	widgets     *widget.Registry
	sets        *cache.LRU[string, *template.Template]

	mu    sync.RWMutex
	comps map[string]fs.FS
}

// New returns an Engine.  overrideDir may be empty.
func New(overrideDir string, widgets *widget.Registry) *Engine {
	if widgets == nil {
		widgets = &widget.Registry{}
	}
	return &Engine{
		overrideDir: overrideDir,
		widgets:     widgets,
		sets:        cache.New[string, *template.Template](128),
		comps:       make(map[string]fs.FS),
	}
}

// Mount registers the embedded templates of a component.
func (e *Engine) Mount(comp string, fsys fs.FS) {
	e.mu.Lock()
	e.comps[comp] = fsys
	e.mu.Unlock()
}

//
// public helpers
//

// Render executes the page and streams it to w with the given status.  The
// page is rendered into a buffer first, so a template error still yields a
// clean 500 instead of a half-written page.
func (e *Engine) Render(w http.ResponseWriter, status int, comp, name string, data Data) error {
	out, err := e.RenderToString(comp, name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err = w.Write([]byte(out))
	return err
}

// RenderToString executes and returns HTML.
func (e *Engine) RenderToString(comp, name string, data Data) (template.HTML, error) {
	t, err := e.load(comp, name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute %s/%s: %w", comp, name, err)
	}
	return template.HTML(buf.String()), nil
}

//
// internal: load
//

// load finds and (if necessary) parses the template set for comp/name.
func (e *Engine) load(comp, name string) (*template.Template, error) {
	key := comp + "::" + name
	if t, ok := e.sets.Get(key); ok {
		return t, nil
	}

	layoutFS, layoutPath := e.locateLayout()
	pageFS, pagePath, err := e.locatePage(comp, name)
	if err != nil {
		return nil, err
	}

	t, err := template.New("base").Funcs(e.funcMap()).ParseFS(layoutFS, layoutPath)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if t, err = t.ParseFS(pageFS, pagePath); err != nil {
		return nil, fmt.Errorf("parse %s/%s: %w", comp, name, err)
	}

	e.sets.Add(key, t)
	return t, nil
}

func (e *Engine) locateLayout() (fs.FS, string) {
	if e.overrideDir != "" {
		if _, err := os.Stat(filepath.Join(e.overrideDir, "layout.html")); err == nil {
			return os.DirFS(e.overrideDir), "layout.html"
		}
	}
	return baseFS, "templates/layout.html"
}

func (e *Engine) locatePage(comp, name string) (fs.FS, string, error) {
	file := name + ".html"
	if e.overrideDir != "" {
		if _, err := os.Stat(filepath.Join(e.overrideDir, comp, file)); err == nil {
			return os.DirFS(filepath.Join(e.overrideDir, comp)), file, nil
		}
	}

	e.mu.RLock()
	fsys, ok := e.comps[comp]
	e.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("view: component %q not mounted", comp)
	}
	if _, err := fs.Stat(fsys, file); err != nil {
		return nil, "", fmt.Errorf("view: template %s/%s: %w", comp, file, err)
	}
	return fsys, file, nil
}

//
// func-map builders
//

func (e *Engine) funcMap() template.FuncMap {
	fm := template.FuncMap{
		"dict":   dict,
		"widget": e.widgetFunc,
	}
	for k, v := range uaFuncMap() {
		fm[k] = v
	}
	return fm
}

//
// helpers
//

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// widgetFunc renders a registered widget and returns safe HTML.  Errors are
// logged and hidden behind <!-- comments --> so end-users never see them.
func (e *Engine) widgetFunc(key string, r *http.Request, params map[string]any) template.HTML {
	w := e.widgets.Lookup(key)
	if w == nil {
		return template.HTML("<!-- widget not found -->")
	}
	out, err := w.Render(r, params)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("widget render failed", "widget", key, "err", err)
		return template.HTML("<!-- widget error -->")
	}
	return out
}
