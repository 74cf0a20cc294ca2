package validate

import (
	"context"
	"time"

	"emailqa/helpers"
	"emailqa/internal/detect"
	"emailqa/internal/email"
	"emailqa/internal/runtime"
	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"
)

// Detector arbitrates product-table detection for one URL
type Detector interface {
	Detect(ctx context.Context, url string, settings runtime.Settings) detect.Result
}

// Options selects optional per-link work
type Options struct {
	CheckProductTable bool
}

// quickProbeTimeout bounds the reachability check against the local fixture
// server that decides whether a development run can substitute it.
const quickProbeTimeout = 2 * time.Second

// HTTP statuses that count as an acceptable destination
var acceptableStatuses = map[int]bool{
	200: true,
	301: true,
	302: true,
}

// LinkValidator produces one LinkValidation per extracted link
type LinkValidator struct {
	detector Detector
	log      *logger.Logger
}

// NewLinkValidator creates a link validator backed by the given detector
func NewLinkValidator(detector Detector) *LinkValidator {
	return &LinkValidator{
		detector: detector,
		log:      logger.ForValidator(),
	}
}

// Validate checks one link: HTTP status with retries, UTM comparison, and
// optionally the product-table detection. The PASS/FAIL roll-up comes from
// the status and UTM checks only.
func (v *LinkValidator) Validate(ctx context.Context, link email.LinkRecord, expectedUTM map[string]string, settings runtime.Settings, opts Options) LinkValidation {
	// A check that has started runs to its own timeouts; aborting the batch
	// stops new links from being scheduled but never hard-kills this one.
	ctx = context.WithoutCancel(ctx)

	lv := LinkValidation{
		Href:          link.Href,
		SourceContext: link.SourceContext,
		UTMIssues:     []string{},
	}

	effective := link.Href
	if fixture, ok := v.fixtureRedirect(ctx, link.Href, settings); ok {
		effective = fixture
		// The substitution is reported in development only
		if settings.IsDevelopment() {
			lv.RedirectedTo = fixture
		}
		v.log.Debug().Str("url", link.Href).Str("fixture", fixture).Msg("Substituted fixture URL for status check")
	}

	status, _, err := helpers.FetchStatusWithRetries(ctx, effective, settings.RequestTimeout, settings.MaxRetries)
	if err != nil {
		lv.StatusError = string(qaerrors.KindOf(err))
		v.log.Warn().Str("url", effective).Err(err).Msg("Status check failed")
	} else {
		lv.HTTPStatus = status
	}

	// UTM tagging lives in the link itself, so it is evaluated even when the
	// destination never answered.
	lv.UTMIssues = CompareUTM(link.Href, expectedUTM)

	if opts.CheckProductTable && err == nil && acceptableStatuses[status] {
		check := v.productTableCheck(ctx, effective, settings)
		lv.ProductTable = &check
	}

	if err == nil && acceptableStatuses[status] && len(lv.UTMIssues) == 0 {
		lv.Status = StatusPass
	} else {
		lv.Status = StatusFail
	}
	return lv
}

// fixtureRedirect decides whether the check should use the local fixture
// stand-in instead of the real destination. With redirection enabled the
// fixture is probed first and preferred whenever its server answers, so
// development runs never lean on live marketing sites; the live URL is used
// only when no fixture server is running.
func (v *LinkValidator) fixtureRedirect(ctx context.Context, rawURL string, settings runtime.Settings) (string, bool) {
	if !settings.EnableFixtureRedirects || settings.IsFixtureDomain(rawURL) {
		return "", false
	}

	fixture, err := settings.FixtureURL(rawURL)
	if err != nil {
		return "", false
	}

	probeCtx, cancel := context.WithTimeout(ctx, quickProbeTimeout)
	defer cancel()
	if _, _, err := helpers.FetchStatus(probeCtx, fixture, quickProbeTimeout); err != nil {
		return "", false
	}
	return fixture, true
}

// productTableCheck runs detection on its own goroutine under its own
// ceiling so a hung check annotates the link instead of failing it. The
// slot always resolves; an abandoned detection runs on to its own deadline.
func (v *LinkValidator) productTableCheck(ctx context.Context, url string, settings runtime.Settings) ProductTableCheck {
	resultCh := make(chan detect.Result, 1)

	go func() {
		resultCh <- v.detector.Detect(ctx, url, settings)
	}()

	// Grace beyond the arbitrator's own aggregate budget
	ceiling := settings.DetectionBudget + settings.ProductTableTimeout
	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		return ProductTableCheck{Result: result, Checked: true}
	case <-timer.C:
	}

	v.log.Warn().Str("url", url).Msg("Product table check abandoned at link-level ceiling")
	return ProductTableCheck{
		Result: detect.Result{
			Found:   detect.Unknown,
			Method:  detect.MethodTimeout,
			Error:   qaerrors.NewClassifierTimeout("product_table", ceiling).Error(),
			Message: "Product table check did not finish within the link budget",
		},
		Checked: true,
	}
}
