// Package page identifies the page a form was posted from, so the handler
// can re-render it on failure or redirect back to it on success.
package page

import (
	"net/http"
	"net/url"
	"strings"
)

// ReturnField is the hidden form input carrying the originating path.
const ReturnField = "return_to"

// Page is the originating page of a request.
type Page struct {
	Path  string // local path plus query, always starting with "/"
	Title string
}

// Resolver finds the current page of a request.  Lookup order:
//
//  1. the return_to field of an already parsed form body,
//  2. a same-host Referer,
//  3. the request path itself for GET and HEAD,
//  4. Default.
//
// Only local paths are accepted, so a crafted value cannot turn the
// success redirect into an open redirect.
type Resolver struct {
	Default string            // fallback path, "/" when empty
	Titles  map[string]string // path → title, optional
}

// Current implements the handler's PageResolver.
func (res Resolver) Current(r *http.Request) Page {
	path := res.pick(r)
	return Page{Path: path, Title: res.Titles[stripQuery(path)]}
}

func (res Resolver) pick(r *http.Request) string {
	if r.PostForm != nil {
		if p, ok := localPath(r.PostForm.Get(ReturnField)); ok {
			return p
		}
	}
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
			if p, ok := localPath(u.RequestURI()); ok {
				return p
			}
		}
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if p, ok := localPath(r.URL.RequestURI()); ok {
			return p
		}
	}
	if res.Default != "" {
		return res.Default
	}
	return "/"
}

// localPath accepts "/x" but rejects "//host", "/\host", and absolute URLs.
func localPath(p string) (string, bool) {
	if p == "" || p[0] != '/' {
		return "", false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return "", false
	}
	if strings.ContainsAny(p, "\r\n") {
		return "", false
	}
	return p, true
}

func stripQuery(p string) string {
	path, _, _ := strings.Cut(p, "?")
	return path
}
