// internal/form/submit.go
//
// Onatrix – Forms subsystem: request binding.
//
// Context
//   Handlers want one call that turns a POST body into url.Values no matter
//   how the browser or a script encoded it.  Bind accepts:
//
//     •  application/x-www-form-urlencoded
//     •  multipart/form-data (FormData from fetch)
//     •  application/json holding a flat object
//
//   A body that cannot be parsed yields empty values, so the caller reports
//   it exactly like missing fields instead of failing the request.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yanizio/onatrix/internal/logger"
)

// MaxBodyBytes caps how much of a submission Bind will read.
const MaxBodyBytes = 64 << 10

// Bind parses r's body into url.Values.  It never returns nil.
func Bind(w http.ResponseWriter, r *http.Request) url.Values {
	log := logger.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		vals, err := bindJSON(r)
		if err != nil {
			log.Debugw("form bind: bad JSON body", "err", err)
			return url.Values{}
		}
		return vals

	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			log.Debugw("form bind: bad multipart body", "err", err)
			return url.Values{}
		}
		return r.PostForm

	default:
		if err := r.ParseForm(); err != nil {
			log.Debugw("form bind: bad form body", "err", err)
			return url.Values{}
		}
		return r.PostForm
	}
}

// bindJSON decodes a flat JSON object.  Scalars are stringified; nested
// values are ignored.
func bindJSON(r *http.Request) (url.Values, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	vals := make(url.Values, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			vals.Set(k, t)
		case json.Number:
			vals.Set(k, t.String())
		case bool:
			vals.Set(k, strconv.FormatBool(t))
		}
	}
	return vals, nil
}
