// internal/form/validate.go
//
// Onatrix – Forms subsystem: server-side validation.
//
// Context
//   The browser script is a convenience, never a trust boundary.  Every POST
//   is re-validated here against the same Policy the script received.
//
// Workflow
//   •  Clean extracts the policy's fields from the posted values and trims
//      surrounding whitespace.  Unknown keys are dropped.
//   •  Validate walks the fields in policy order: required first, then the
//      length limit, then the pattern, then (when Choices are supplied) the
//      allowed-value check.  One message per failing field.
//   •  The result is a *FieldErrors, which also satisfies error so callers
//      can tell user mistakes from faults with IsValidationError.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// FieldErrors is an insertion-ordered map of field name → messages.  The
// zero value and nil are both empty and ready to use.
type FieldErrors struct {
	order []string
	msgs  map[string][]string
}

// Add appends msg to field's messages.
func (fe *FieldErrors) Add(field, msg string) {
	if fe.msgs == nil {
		fe.msgs = make(map[string][]string)
	}
	if _, ok := fe.msgs[field]; !ok {
		fe.order = append(fe.order, field)
	}
	fe.msgs[field] = append(fe.msgs[field], msg)
}

// Len reports how many fields have at least one message.
func (fe *FieldErrors) Len() int {
	if fe == nil {
		return 0
	}
	return len(fe.order)
}

// Fields returns the failing field names in the order they were added.
func (fe *FieldErrors) Fields() []string {
	if fe == nil {
		return nil
	}
	return append([]string(nil), fe.order...)
}

// Get returns every message for field.
func (fe *FieldErrors) Get(field string) []string {
	if fe == nil {
		return nil
	}
	return fe.msgs[field]
}

// First returns the first message for field, or "".
func (fe *FieldErrors) First(field string) string {
	if m := fe.Get(field); len(m) > 0 {
		return m[0]
	}
	return ""
}

// Error implements error.
func (fe *FieldErrors) Error() string {
	if fe.Len() == 0 {
		return "form validation failed"
	}
	return "form validation failed: " + strings.Join(fe.order, ", ")
}

// MarshalJSON writes {"Field":["msg", …], …} preserving field order.
func (fe *FieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fe.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fe.msgs[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsValidationError reports whether err is (or wraps) a non-empty
// *FieldErrors.
func IsValidationError(err error) bool {
	var fe *FieldErrors
	return errors.As(err, &fe) && fe.Len() > 0
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Choices restricts select fields to a set of allowed values, keyed by
// field name.  Fields absent from the map get a presence check only.
type Choices map[string][]string

// Clean returns the trimmed value of every policy field.  Missing fields map
// to "".
func (p *Policy) Clean(posted url.Values) map[string]string {
	out := make(map[string]string, len(p.Fields))
	for _, f := range p.Fields {
		out[f.Name] = strings.TrimSpace(posted.Get(f.Name))
	}
	return out
}

// Validate checks vals (as returned by Clean) and returns the failures.  The
// result has Len() == 0 when every field passes.
func (p *Policy) Validate(vals map[string]string, choices Choices) *FieldErrors {
	errs := &FieldErrors{}
	for i := range p.Fields {
		f := &p.Fields[i]
		if msg := f.check(strings.TrimSpace(vals[f.Name]), choices[f.Name]); msg != "" {
			errs.Add(f.Name, msg)
		}
	}
	return errs
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

// check returns the user-facing message for the first rule val breaks.
func (f *FieldRule) check(val string, allowed []string) string {
	if val == "" {
		if f.Required {
			return f.requiredMsg()
		}
		return ""
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(val) > f.MaxLength {
		return f.lengthMsg(f.MaxLength)
	}
	if f.LocalMaxLength > 0 && utf8.RuneCountInString(localPart(val)) > f.LocalMaxLength {
		return f.lengthMsg(f.LocalMaxLength)
	}
	if f.re != nil && !f.re.MatchString(val) {
		return f.PatternMessage
	}
	if allowed != nil && !contains(allowed, val) {
		return f.choiceMsg()
	}
	return ""
}

func (f *FieldRule) lengthMsg(limit int) string {
	if f.PatternMessage != "" {
		return f.PatternMessage
	}
	return fmt.Sprintf("Must be at most %d characters.", limit)
}

// localPart returns everything before the last "@", or val when there is none.
func localPart(val string) string {
	if i := strings.LastIndexByte(val, '@'); i >= 0 {
		return val[:i]
	}
	return val
}

func (f *FieldRule) requiredMsg() string {
	if f.RequiredMessage != "" {
		return f.RequiredMessage
	}
	return f.Label + " is required"
}

func (f *FieldRule) choiceMsg() string {
	if f.ChoiceMessage != "" {
		return f.ChoiceMessage
	}
	return "Please select a valid option"
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
