// internal/view/uahelpers.go
//
// Request-info template helpers.  Every helper accepts a nil
// *requestinfo.RequestInfo, so templates rendered outside the middleware
// chain (tests, e-mails) still work.
package view

import (
	"html/template"
	"strings"

	"github.com/yanizio/onatrix/internal/requestinfo"
)

// uaFuncMap returns helpers keyed off *requestinfo.RequestInfo.
func uaFuncMap() template.FuncMap {
	return template.FuncMap{
		"browser": func(i *requestinfo.RequestInfo) string {
			if i == nil {
				return ""
			}
			return i.UA.Browser
		},
		"device": func(i *requestinfo.RequestInfo) string {
			if i == nil || i.UA.Device == "" {
				return "unknown"
			}
			return strings.ToLower(i.UA.Device)
		},
		"isBot": func(i *requestinfo.RequestInfo) bool { return i != nil && i.UA.IsBot },
		"country": func(i *requestinfo.RequestInfo) string {
			if i == nil {
				return ""
			}
			return i.Geo.CountryISO
		},
		"lang": func(i *requestinfo.RequestInfo) string {
			if i == nil || i.UA.PrimaryLang == "" {
				return "en"
			}
			return i.UA.PrimaryLang
		},
	}
}
