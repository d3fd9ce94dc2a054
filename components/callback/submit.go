// components/callback/submit.go
//
// POST /callback – the submission handler.
//
// Flow
// ----
//  1. Bind the body (form, multipart, or JSON) and pick the responder.
//  2. Verify the CSRF token when forms.csrf is on.
//  3. Validate against the active policy.  Invalid → responder.invalid.
//  4. Save exactly once.  false → responder.failed; error → generic 500.
//  5. Queue post-save actions and answer responder.succeeded.
//
// No retries and no de-duplication: a resubmission creates a new row.

package callback

import (
	"net/http"
	"time"

	cb "github.com/yanizio/onatrix/internal/callback"
	"github.com/yanizio/onatrix/internal/form"
	"github.com/yanizio/onatrix/internal/logger"
	"github.com/yanizio/onatrix/internal/metrics"
	"github.com/yanizio/onatrix/internal/requestinfo"
)

// Submit handles POST /callback.
func (c *Component) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	posted := form.Bind(w, r)
	resp := c.newResponder(w, r, c.Pages.Current(r))
	vals := c.Policy.Clean(posted)

	count := func(outcome string) {
		metrics.SubmissionsTotal.WithLabelValues(outcome, resp.kind()).Inc()
	}

	if c.RequireCSRF && !c.Signer.Verify(posted.Get(form.CSRFField)) {
		log.Infow("callback rejected: bad csrf token")
		count(metrics.OutcomeRejected)
		resp.failed(msgCSRF, vals)
		return
	}

	var choices form.Choices
	if c.StrictOptions {
		choices = form.Choices{cb.FieldSelectedOption: cb.Values(c.Options.Options(ctx))}
	}
	if errs := c.Policy.Validate(vals, choices); errs.Len() > 0 {
		log.Debugw("callback invalid", "fields", errs.Fields())
		count(metrics.OutcomeInvalid)
		resp.invalid(errs, vals)
		return
	}

	rec := cb.NewRequest(vals, c.Policy.Name, requestinfo.FromContext(ctx), c.Now())

	start := time.Now()
	ok, err := c.Saver.Save(ctx, rec)
	metrics.SaveDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		log.Errorw("callback save fault", "err", err)
		count(metrics.OutcomeFault)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	case !ok:
		count(metrics.OutcomeSaveFailed)
		resp.failed(msgSaveFailed, vals)
	default:
		count(metrics.OutcomeSaved)
		if c.Actions != nil {
			c.Actions.Execute(ctx, Name, rec)
		}
		resp.succeeded()
	}
}

// rateLimited answers requests the limiter turned away.  The body is never
// read, so the browser page is re-rendered empty.
func (c *Component) rateLimited(w http.ResponseWriter, r *http.Request) {
	resp := c.newResponder(w, r, c.Pages.Current(r))
	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRateLimited, resp.kind()).Inc()
	resp.limited()
}
