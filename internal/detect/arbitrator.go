package detect

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"emailqa/internal/runtime"
	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"
	"emailqa/services/cache"
)

// Classifier is one product-table detection strategy
type Classifier interface {
	Method() Method
	Classify(ctx context.Context, url string, timeout time.Duration) Result
}

// simulateBotBlockedParam marks a fixture URL that should produce a canned
// bot-blocked result in development mode.
const simulateBotBlockedParam = "simulate_bot_block"

const cacheTTL = 10 * time.Minute

// manualCheckMessage is the standard wording for inconclusive verdicts
const manualCheckMessage = "Unknown - product table could not be verified - manual verification required"

// Arbitrator selects detection strategies per URL and reconciles their
// results into one verdict. Strategy preference is fixed at construction:
// a rendering classifier (local browser when a runtime exists, otherwise
// the cloud API when a key is provisioned), then direct HTTP, then the
// probabilistic heuristic.
type Arbitrator struct {
	rendered  Classifier
	direct    Classifier
	heuristic Classifier
	cache     cache.CacheService
	log       *logger.Logger
	cacheLog  *logger.Logger
}

// Option adjusts arbitrator construction
type Option func(*Arbitrator)

// WithCache enables per-URL result caching so repeated links in one batch
// are not re-rendered.
func WithCache(svc cache.CacheService) Option {
	return func(a *Arbitrator) { a.cache = svc }
}

// WithRenderedClassifier overrides the rendering strategy; used by tests
// and by deployments that need a non-default preference order.
func WithRenderedClassifier(c Classifier) Option {
	return func(a *Arbitrator) { a.rendered = c }
}

// NewArbitrator wires the strategy set for this deployment
func NewArbitrator(avail Availability, browser, cloud, direct, heuristic Classifier, opts ...Option) *Arbitrator {
	a := &Arbitrator{
		direct:    direct,
		heuristic: heuristic,
		log:       logger.ForDetector("arbitrator"),
		cacheLog:  logger.ForCache(),
	}

	// Deployment-time choice: a local browser runtime wins; the cloud API
	// substitutes for it when no runtime is configured.
	switch {
	case avail.BrowserRuntime:
		a.rendered = browser
	case avail.CloudAPI:
		a.rendered = cloud
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detect runs the strategy chain for one URL under the aggregate time
// ceiling from the settings snapshot and returns the arbitrated verdict.
func (a *Arbitrator) Detect(ctx context.Context, rawURL string, settings runtime.Settings) Result {
	// Fixture domains in development never hit the network
	if settings.IsDevelopment() && settings.EnableFixtureRedirects && settings.IsFixtureDomain(rawURL) {
		return a.simulated(rawURL)
	}

	if cached, ok := a.cacheGet(rawURL); ok {
		a.cacheLog.Debug().Str("url", rawURL).Msg("Detection result served from cache")
		return cached
	}

	// One aggregate ceiling for all strategies on this URL, distinct from
	// each classifier's own internal timeout.
	budgetCtx, cancel := context.WithTimeout(ctx, settings.DetectionBudget)
	defer cancel()

	var fallback *Result

	for _, classifier := range a.strategies(settings) {
		if budgetCtx.Err() != nil {
			break
		}

		result := a.runIsolated(budgetCtx, classifier, rawURL, settings.ProductTableTimeout)

		// Bot-blocking is a terminal, reportable outcome. Falling through
		// to a weaker detector could mask it with a false negative.
		if result.BotBlocked {
			result.Found = maskBlockedVerdict(result.Found)
			a.cachePut(rawURL, result)
			return result
		}

		if a.conclusive(classifier.Method(), result) {
			a.cachePut(rawURL, result)
			return result
		}

		if fallback == nil || result.Error == "" {
			r := result
			fallback = &r
		}
	}

	// Every configured strategy exhausted without a trustworthy verdict
	final := unknownResult(MethodError, manualCheckMessage)
	if fallback != nil {
		final.Method = fallback.Method
		final.Error = fallback.Error
		final.BotBlocked = fallback.BotBlocked
	}
	if budgetCtx.Err() != nil && final.Error == "" {
		final.Method = MethodTimeout
		final.Error = qaerrors.NewClassifierTimeout("arbitrator", settings.DetectionBudget).Error()
	}
	return final
}

// strategies returns the classifier chain for this run. Production prefers
// the rendering classifier; development leads with the cheap direct check.
// The heuristic is always last and only ever surfaces when the
// deterministic methods exhausted themselves.
func (a *Arbitrator) strategies(settings runtime.Settings) []Classifier {
	var chain []Classifier
	if settings.IsProduction() && a.rendered != nil {
		chain = append(chain, a.rendered)
	}
	if a.direct != nil {
		chain = append(chain, a.direct)
	}
	if !settings.IsProduction() && a.rendered != nil {
		chain = append(chain, a.rendered)
	}
	if a.heuristic != nil {
		chain = append(chain, a.heuristic)
	}
	return chain
}

// runIsolated executes one classifier on its own goroutine so a hang cannot
// starve the aggregate budget. On timeout the slot resolves to a tagged
// timeout result; the classifier itself runs on to its natural deadline.
func (a *Arbitrator) runIsolated(ctx context.Context, classifier Classifier, url string, timeout time.Duration) Result {
	resultCh := make(chan Result, 1)

	go func() {
		resultCh <- classifier.Classify(ctx, url, timeout)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		a.log.Warn().
			Str("url", url).
			Str("method", string(classifier.Method())).
			Msg("Classifier cut short by aggregate detection budget")
		return errorResult(MethodTimeout,
			qaerrors.NewClassifierTimeout(string(classifier.Method()), timeout))
	}
}

// conclusive decides whether a result terminates arbitration. Positive
// verdicts and explicit empty-listing markers always do. A plain negative
// is only trusted from a classifier that evaluated the rendered DOM; a
// static-HTML no-match may just mean the page renders client-side.
func (a *Arbitrator) conclusive(method Method, result Result) bool {
	if result.Error != "" {
		return false
	}
	switch result.Found {
	case Found:
		return true
	case NotFound:
		if result.ClassName == noProductsMarkerName {
			return true
		}
		return method == MethodBrowser || method == MethodHeuristic
	default:
		return false
	}
}

// maskBlockedVerdict downgrades a bot-blocked negative so callers never
// mistake it for a genuine "no product table".
func maskBlockedVerdict(found Tristate) Tristate {
	if found == NotFound {
		return Unknown
	}
	return found
}

// simulated returns the canned development-mode result for fixture URLs
func (a *Arbitrator) simulated(rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Query().Get(simulateBotBlockedParam) != "" {
		return Result{
			Found:        NotFound,
			Method:       MethodSimulated,
			BotBlocked:   true,
			IsTestDomain: true,
			Message:      "Simulated bot-blocked response for fixture domain",
		}
	}
	return Result{
		Found:        Found,
		ClassName:    "product-table productListContainer",
		Method:       MethodSimulated,
		IsTestDomain: true,
		Message:      "Simulated product table for fixture domain",
	}
}

func (a *Arbitrator) cacheGet(url string) (Result, bool) {
	if a.cache == nil {
		return Result{}, false
	}
	data, err := a.cache.Get(cacheKey(url))
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

func (a *Arbitrator) cachePut(url string, result Result) {
	if a.cache == nil || result.Method == MethodSimulated {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := a.cache.Set(cacheKey(url), data, cacheTTL); err != nil {
		a.cacheLog.Debug().Str("url", url).Err(err).Msg("Failed to cache detection result")
	}
}

func cacheKey(url string) string {
	return "detect:" + url
}
