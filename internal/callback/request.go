// Package callback holds the callback-request record, its MySQL store, and
// the configured option list.
package callback

import (
	"time"

	"github.com/yanizio/onatrix/internal/requestinfo"
)

// Wire keys of the callback form.
const (
	FieldName           = "Name"
	FieldEmail          = "Email"
	FieldPhone          = "Phone"
	FieldSelectedOption = "SelectedOption"
)

// Request is one submitted callback request.  It is created once, saved
// once, and never mutated afterwards.
type Request struct {
	ID             int64     `db:"id"              json:"id"`
	Name           string    `db:"name"            json:"name"`
	Email          string    `db:"email"           json:"email"`
	Phone          string    `db:"phone"           json:"phone"`
	SelectedOption string    `db:"selected_option" json:"selectedOption"`
	Policy         string    `db:"policy"          json:"policy"`
	ClientIP       string    `db:"client_ip"       json:"clientIp,omitempty"`
	Country        string    `db:"country"         json:"country,omitempty"`
	Browser        string    `db:"browser"         json:"browser,omitempty"`
	Device         string    `db:"device"          json:"device,omitempty"`
	SubmittedAt    time.Time `db:"submitted_at"    json:"submittedAt"`
}

// Option is one selectable value of the SelectedOption field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// NewRequest builds a Request from cleaned form values and, when present,
// the request metadata collected by requestinfo.
func NewRequest(vals map[string]string, policy string, info *requestinfo.RequestInfo, now time.Time) *Request {
	rec := &Request{
		Name:           vals[FieldName],
		Email:          vals[FieldEmail],
		Phone:          vals[FieldPhone],
		SelectedOption: vals[FieldSelectedOption],
		Policy:         policy,
		SubmittedAt:    now.UTC(),
	}
	if info != nil {
		rec.ClientIP = info.ClientIP()
		rec.Country = info.Geo.CountryISO
		rec.Browser = info.UA.Browser
		rec.Device = info.UA.Device
	}
	return rec
}
