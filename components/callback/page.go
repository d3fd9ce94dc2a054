// components/callback/page.go
//
// Read-only endpoints: the form page, the policy JSON, and the client script.

package callback

import (
	"encoding/json"
	"net/http"

	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/page"
	"github.com/yanizio/onatrix/internal/requestinfo"
	"github.com/yanizio/onatrix/internal/view"
)

// pageBody is the component-specific part of view.Data.
type pageBody struct {
	Values     map[string]string
	Errors     *form.FieldErrors
	FormError  string
	ReturnPath string
}

func (c *Component) showPage(w http.ResponseWriter, r *http.Request) {
	c.renderPage(w, r, http.StatusOK, c.Pages.Current(r), pageBody{})
}

// renderPage draws the callback page for pg.  Template failures are logged
// and answered with a generic 500.
func (c *Component) renderPage(w http.ResponseWriter, r *http.Request, status int, pg page.Page, body pageBody) {
	title := pg.Title
	if title == "" {
		title = defaultTitle
	}
	body.ReturnPath = pg.Path

	err := c.View.Render(w, status, Name, "callback", view.Data{
		Request: r,
		Info:    requestinfo.FromContext(r.Context()),
		Title:   title,
		Body:    body,
	})
	if err != nil {
		logger.FromContext(r.Context()).Errorw("callback page render failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (c *Component) servePolicy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(c.Policy); err != nil {
		logger.FromContext(r.Context()).Errorw("policy encode failed", "err", err)
	}
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(clientScript)
}
