package callback

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cb "github.com/yanizio/onatrix/internal/callback"
	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/middleware"
)

//
// Script callers (JSON)
//

func TestSubmit_JaneMissingPhone(t *testing.T) {
	f := newFixture(t, nil)
	vals := janeValues()
	vals.Set("Phone", "")

	w := f.post(vals, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"success":false,"errors":{"Phone":["Phone is required"]}}`, w.Body.String())
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Zero(t, f.actions.calls())
}

func TestSubmit_EmptyPostListsEveryFieldInOrder(t *testing.T) {
	f := newFixture(t, nil)

	w := f.post(url.Values{}, true)

	assert.Equal(t,
		`{"success":false,"errors":{"Name":["Name is required"],"Email":["Email is required"],"Phone":["Phone is required"],"SelectedOption":["Please select an option"]}}`,
		body(w))
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmit_PatternFailures(t *testing.T) {
	f := newFixture(t, nil)
	vals := janeValues()
	vals.Set("Email", "jane.example.com")
	vals.Set("Phone", "12345")

	w := f.post(vals, true)

	assert.JSONEq(t,
		`{"success":false,"errors":{"Email":["Invalid email address format"],"Phone":["Invalid phone number"]}}`,
		w.Body.String())
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmit_WhitespaceOnlyCountsAsMissing(t *testing.T) {
	f := newFixture(t, nil)
	vals := janeValues()
	vals.Set("Name", "   ")

	w := f.post(vals, true)

	assert.JSONEq(t, `{"success":false,"errors":{"Name":["Name is required"]}}`, w.Body.String())
}

func TestSubmit_SavedOnce(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	f := newFixture(t, func(d *Deps) { d.Now = func() time.Time { return fixed } })

	vals := janeValues()
	vals.Set("Name", "  Jane  ")
	f.saver.On("Save", mock.Anything, mock.MatchedBy(func(rec *cb.Request) bool {
		return rec.Name == "Jane" &&
			rec.Email == "jane@example.com" &&
			rec.Phone == "0701234567" &&
			rec.SelectedOption == "support" &&
			rec.Policy == form.PolicySweden &&
			rec.SubmittedAt.Equal(fixed)
	})).Return(true, nil).Once()

	w := f.post(vals, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully!"}`, w.Body.String())
	f.saver.AssertExpectations(t)
	f.saver.AssertNumberOfCalls(t, "Save", 1)

	require.Equal(t, 1, f.actions.calls())
	assert.Equal(t, Name, f.actions.forms[0])
	assert.IsType(t, &cb.Request{}, f.actions.data[0])
}

func TestSubmit_SaveFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.saver.On("Save", mock.Anything, mock.Anything).Return(false, nil).Once()

	w := f.post(janeValues(), true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to save callback request"}`, w.Body.String())
	f.saver.AssertExpectations(t)
	assert.Zero(t, f.actions.calls())
}

func TestSubmit_SaveFaultIsGeneric500(t *testing.T) {
	f := newFixture(t, nil)
	f.saver.On("Save", mock.Anything, mock.Anything).Return(false, errors.New("pool exhausted"))

	for _, script := range []bool{true, false} {
		w := f.post(janeValues(), script)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pool exhausted")
		assert.NotContains(t, w.Body.String(), "success")
	}
	f.saver.AssertNumberOfCalls(t, "Save", 2)
	assert.Zero(t, f.actions.calls())
}

func TestSubmit_JSONBody(t *testing.T) {
	f := newFixture(t, nil)
	f.saver.On("Save", mock.Anything, mock.MatchedBy(func(rec *cb.Request) bool {
		return rec.Name == "Jane" && rec.SelectedOption == "sales"
	})).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, pagePath, strings.NewReader(
		`{"Name":"Jane","Email":"jane@example.com","Phone":"+46701234567","SelectedOption":"sales"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully!"}`, w.Body.String())
	f.saver.AssertExpectations(t)
}

func TestSubmit_MalformedJSONIsTreatedAsEmpty(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, pagePath, strings.NewReader(`{"Name":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Name":["Name is required"]`)
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

//
// Browser callers (HTML)
//

func TestSubmit_BrowserInvalidReRendersWithValues(t *testing.T) {
	f := newFixture(t, nil)
	vals := janeValues()
	vals.Set("Name", `<b>Jane</b>`)
	vals.Set("Phone", "")

	w := f.post(vals, false)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	out := w.Body.String()
	assert.Contains(t, out, `value="&lt;b&gt;Jane&lt;/b&gt;"`)
	assert.NotContains(t, out, `<b>Jane</b>`)
	assert.Contains(t, out, `value="jane@example.com"`)
	assert.Contains(t, out, `<option value="support" selected>Support</option>`)
	assert.Contains(t, out, `Phone is required`)
	assert.Equal(t, 1, strings.Count(out, "input-validation-error"))
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmit_BrowserSaveFailedShowsFormError(t *testing.T) {
	f := newFixture(t, nil)
	f.saver.On("Save", mock.Anything, mock.Anything).Return(false, nil).Once()

	w := f.post(janeValues(), false)

	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `<div class="callback-form-summary" role="alert">Failed to save callback request</div>`)
	assert.Contains(t, out, `value="Jane"`)
	assert.NotContains(t, out, "input-validation-error")
}

func TestSubmit_BrowserSuccessRedirectsToOriginPage(t *testing.T) {
	cases := []struct {
		name     string
		returnTo string
		want     string
	}{
		{"default page", "", pagePath},
		{"embedding page", "/contact?from=footer", "/contact?from=footer"},
		{"foreign host rejected", "//evil.example/", pagePath},
		{"absolute url rejected", "https://evil.example/", pagePath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.saver.On("Save", mock.Anything, mock.Anything).Return(true, nil).Once()

			vals := janeValues()
			if tc.returnTo != "" {
				vals.Set(form.ReturnField, tc.returnTo)
			}
			w := f.post(vals, false)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, tc.want, w.Header().Get("Location"))
			assert.Equal(t, 1, f.actions.calls())
		})
	}
}

//
// Caller-kind consistency
//

func TestSubmit_CallerKindConsistentAcrossOutcomes(t *testing.T) {
	type outcome struct {
		name  string
		vals  func() url.Values
		saved *bool
	}
	yes, no := true, false
	invalid := func() url.Values { v := janeValues(); v.Del("Email"); return v }

	for _, oc := range []outcome{
		{"invalid", invalid, nil},
		{"save failed", janeValues, &no},
		{"saved", janeValues, &yes},
	} {
		t.Run(oc.name+"/script", func(t *testing.T) {
			f := newFixture(t, nil)
			if oc.saved != nil {
				f.saver.On("Save", mock.Anything, mock.Anything).Return(*oc.saved, nil).Once()
			}
			w := f.post(oc.vals(), true)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		})
		t.Run(oc.name+"/browser", func(t *testing.T) {
			f := newFixture(t, nil)
			if oc.saved != nil {
				f.saver.On("Save", mock.Anything, mock.Anything).Return(*oc.saved, nil).Once()
			}
			w := f.post(oc.vals(), false)
			if oc.saved != nil && *oc.saved {
				assert.Equal(t, http.StatusSeeOther, w.Code)
				return
			}
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		})
	}
}

func TestIsProgrammatic(t *testing.T) {
	cases := []struct {
		header, value string
		want          bool
	}{
		{"X-Requested-With", "XMLHttpRequest", true},
		{"X-Requested-With", "xmlhttprequest", true},
		{"Content-Type", "application/json; charset=utf-8", true},
		{"Content-Type", "application/x-www-form-urlencoded", false},
		{"Accept", "application/json", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, pagePath, nil)
		r.Header.Set(tc.header, tc.value)
		assert.Equal(t, tc.want, isProgrammatic(r), "%s: %s", tc.header, tc.value)
	}
}

//
// Optional features
//

func TestSubmit_CSRF(t *testing.T) {
	signer := form.NewSigner([]byte("test-key"))
	f := newFixture(t, func(d *Deps) {
		d.Signer = signer
		d.RequireCSRF = true
	})

	w := f.post(janeValues(), true)
	assert.JSONEq(t, `{"success":false,"message":"Security token invalid.  Please refresh and try again."}`, w.Body.String())
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	w = f.post(janeValues(), false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Security token invalid.")

	tok, err := signer.Token()
	require.NoError(t, err)
	f.saver.On("Save", mock.Anything, mock.Anything).Return(true, nil).Once()

	vals := janeValues()
	vals.Set(form.CSRFField, tok)
	w = f.post(vals, true)
	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully!"}`, w.Body.String())
	f.saver.AssertExpectations(t)
}

func TestSubmit_SelectedOptionPresenceOnlyByDefault(t *testing.T) {
	f := newFixture(t, nil)
	f.saver.On("Save", mock.Anything, mock.MatchedBy(func(rec *cb.Request) bool {
		return rec.SelectedOption == "anything"
	})).Return(true, nil).Once()

	vals := janeValues()
	vals.Set("SelectedOption", "anything")
	w := f.post(vals, true)

	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully!"}`, w.Body.String())
	f.saver.AssertExpectations(t)
}

func TestSubmit_StrictOptions(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.StrictOptions = true })

	vals := janeValues()
	vals.Set("SelectedOption", "anything")
	w := f.post(vals, true)

	assert.JSONEq(t, `{"success":false,"errors":{"SelectedOption":["Please select a valid option"]}}`, w.Body.String())
	f.saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmit_RateLimited(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Limiter = middleware.NewRateLimiter(1, 1, func(*http.Request) string { return "client" })
	})
	f.saver.On("Save", mock.Anything, mock.Anything).Return(true, nil).Once()

	first := f.post(janeValues(), true)
	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully!"}`, first.Body.String())

	second := f.post(janeValues(), true)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests.  Please wait a moment and try again."}`, second.Body.String())

	third := f.post(janeValues(), false)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "callback-form-summary")

	f.saver.AssertNumberOfCalls(t, "Save", 1)

	// GETs are never limited.
	assert.Equal(t, http.StatusOK, f.get(pagePath).Code)
}
