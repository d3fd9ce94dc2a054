// internal/form/renderer.go
//
// Onatrix – Forms subsystem: HTML renderer.
//
// Context
//   Given a Policy this file writes accessible form markup.  On a browser
//   re-render it also carries the posted values, the per-field messages, and
//   an optional form-level message (for failures that belong to no field).
//   The Policy itself is embedded as JSON so the browser script validates
//   with exactly the server's rules.
//
// Markup contract (shared with assets/callback-form.js)
//   •  <form id="{ID}">                               – script hook.
//   •  <div class="callback-form-field">              – one per field.
//   •  <span class="callback-form-validation">        – field message slot.
//   •  class="input-validation-error"                 – invalid input state.
//   •  <div class="callback-form-summary">            – form-level message.
//   •  <script type="application/json" id="{ID}-policy"> – serialized Policy.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strconv"

	"github.com/yanizio/onatrix/internal/page"
)

// ReturnField names the hidden input carrying the originating page path.
const ReturnField = page.ReturnField

// Choice is one entry of a select field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RenderOptions bundles everything that varies per render.
type RenderOptions struct {
	ID          string              // form element id, default "callbackForm"
	Action      string              // POST target
	ReturnPath  string              // originating page, echoed back on submit
	Values      map[string]string   // prefill, keyed by field name
	Errors      *FieldErrors        // field-level messages
	FormError   string              // form-level message
	Choices     map[string][]Choice // select entries, keyed by field name
	CSRFToken   string              // omitted when empty
	SubmitLabel string              // default "Send"
}

// DefaultFormID is the element id the browser script looks for.
const DefaultFormID = "callbackForm"

// Render returns the markup for p.  The caller passes the result into a page
// template, so it is typed template.HTML.
func Render(p *Policy, opts RenderOptions) (template.HTML, error) {
	id := opts.ID
	if id == "" {
		id = DefaultFormID
	}
	submit := opts.SubmitLabel
	if submit == "" {
		submit = "Send"
	}

	policyJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("render %s: encode policy: %w", id, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<form id="%s" class="callback-form" method="post" action="%s" novalidate>`+"\n",
		html.EscapeString(id), html.EscapeString(opts.Action))

	if opts.FormError != "" {
		buf.WriteString(`<div class="callback-form-summary" role="alert">` + html.EscapeString(opts.FormError) + `</div>` + "\n")
	}

	for i := range p.Fields {
		f := &p.Fields[i]
		if err := writeField(&buf, id, f, opts.Values[f.Name], opts.Errors.First(f.Name), opts.Choices[f.Name]); err != nil {
			return "", err
		}
	}

	if opts.CSRFToken != "" {
		buf.WriteString(`<input type="hidden" name="` + CSRFField + `" value="` + html.EscapeString(opts.CSRFToken) + `">` + "\n")
	}
	if opts.ReturnPath != "" {
		buf.WriteString(`<input type="hidden" name="` + ReturnField + `" value="` + html.EscapeString(opts.ReturnPath) + `">` + "\n")
	}
	buf.WriteString(`<button type="submit">` + html.EscapeString(submit) + `</button>` + "\n")

	// json.Marshal escapes <, >, and &, so the payload cannot close the tag.
	buf.WriteString(`<script type="application/json" id="` + html.EscapeString(id) + `-policy">`)
	buf.Write(policyJSON)
	buf.WriteString(`</script>` + "\n")

	buf.WriteString(`</form>`)
	return template.HTML(buf.String()), nil
}

// writeField emits one <div class="callback-form-field"> block.
func writeField(buf *bytes.Buffer, formID string, f *FieldRule, val, msg string, choices []Choice) error {
	fid := html.EscapeString(formID + "-" + f.Name)
	name := html.EscapeString(f.Name)

	buf.WriteString(`<div class="callback-form-field">` + "\n")
	buf.WriteString(`<label for="` + fid + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	common := `id="` + fid + `" name="` + name + `"`
	if f.Required {
		common += ` required`
	}
	if msg != "" {
		common += ` class="input-validation-error" aria-invalid="true"`
	}

	switch f.Type {
	case TypeText, TypeEmail, TypeTel:
		buf.WriteString(`<input ` + common + ` type="` + f.Type + `"`)
		if f.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
		}
		if f.Placeholder != "" {
			buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
		}
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case TypeSelect:
		buf.WriteString(`<select ` + common + `>` + "\n")
		placeholder := f.Placeholder
		if placeholder == "" {
			placeholder = "Select…"
		}
		buf.WriteString(`<option value="">` + html.EscapeString(placeholder) + `</option>` + "\n")
		for _, c := range choices {
			label := c.Label
			if label == "" {
				label = c.Value
			}
			sel := ""
			if val == c.Value {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(c.Value) + `"` + sel + `>` + html.EscapeString(label) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	default:
		return fmt.Errorf("render: unsupported field type %q for %s", f.Type, f.Name)
	}

	buf.WriteString(`<span class="callback-form-validation" aria-live="polite">` + html.EscapeString(msg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}
