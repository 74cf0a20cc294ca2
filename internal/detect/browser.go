package detect

import (
	"context"
	"errors"
	"strings"
	"time"

	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"

	"github.com/chromedp/chromedp"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// How long the page gets to settle after load before the DOM is scanned,
// and the extra window granted to single-page-application roots that are
// still filling in.
const (
	renderSettleDelay = 2 * time.Second
	spaExtraWindow    = 3 * time.Second
)

// dismissConsentScript auto-accepts cookie banners so they cannot cover the
// listing widget or stall rendering.
const dismissConsentScript = `
(() => {
	const selectors = [
		'#onetrust-accept-btn-handler',
		'button[id*="accept"]',
		'button[class*="accept"]',
		'button[aria-label*="accept" i]',
		'[class*="cookie"] button',
	];
	for (const sel of selectors) {
		const btn = document.querySelector(sel);
		if (btn) { btn.click(); return true; }
	}
	return false;
})()`

// domScanScript evaluates the live, script-executed DOM. Order matters:
// the explicit empty-listing marker first, then the exact widget patterns.
const domScanScript = `
(() => {
	const result = {
		found: false,
		className: null,
		count: 0,
		noProducts: false,
		botBlocked: false,
		spaRoot: false,
	};

	const bodyText = (document.body && document.body.innerText || '').toLowerCase();
	const botPhrases = ['captcha', 'checking your browser', 'verify you are human',
		'access denied', 'rate limit exceeded', 'too many requests'];
	for (const phrase of botPhrases) {
		if (bodyText.includes(phrase)) { result.botBlocked = true; break; }
	}

	result.spaRoot = !!(document.getElementById('root') ||
		document.getElementById('app') ||
		document.querySelector('[data-reactroot]') ||
		document.getElementById('__next'));

	const noProducts = document.getElementsByClassName('noPartsPhrase');
	if (noProducts.length > 0) {
		result.noProducts = true;
		result.className = 'noPartsPhrase';
		result.count = noProducts.length;
		return result;
	}

	const matches = [];
	for (const el of document.querySelectorAll('*[class]')) {
		for (const cls of el.classList) {
			if (cls.startsWith('product-table') || cls.endsWith('productListContainer')) {
				matches.push(cls);
				break;
			}
		}
	}
	if (matches.length > 0) {
		result.found = true;
		result.className = matches[0];
		result.count = matches.length;
	}
	return result;
})()`

// domScan is the return shape of domScanScript
type domScan struct {
	Found      bool   `json:"found"`
	ClassName  string `json:"className"`
	Count      int    `json:"count"`
	NoProducts bool   `json:"noProducts"`
	BotBlocked bool   `json:"botBlocked"`
	SPARoot    bool   `json:"spaRoot"`
}

// BrowserClassifier drives a headless Chrome instance, executes the page's
// JavaScript, and queries the live DOM. Most accurate strategy; requires a
// local browser runtime.
type BrowserClassifier struct {
	chromePath string
	log        *logger.Logger
}

// NewBrowserClassifier creates a browser classifier. chromePath may be empty
// to rely on chromedp's own binary lookup.
func NewBrowserClassifier(chromePath string) *BrowserClassifier {
	return &BrowserClassifier{
		chromePath: chromePath,
		log:        logger.ForDetector(string(MethodBrowser)),
	}
}

// Method identifies this strategy
func (c *BrowserClassifier) Method() Method {
	return MethodBrowser
}

// Classify renders the URL in headless Chrome and scans the live DOM
func (c *BrowserClassifier) Classify(ctx context.Context, url string, timeout time.Duration) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.WindowSize(1280, 800),
		chromedp.UserAgent(browserUserAgent),
	)
	if c.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(runCtx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var dismissed bool
	var scan domScan
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(dismissConsentScript, &dismissed),
		chromedp.Sleep(renderSettleDelay),
		chromedp.Evaluate(domScanScript, &scan),
	)
	if err != nil {
		return c.failure(url, err, timeout)
	}

	// SPA roots keep mutating the DOM after load; give them one bounded
	// extra window before trusting a negative.
	if scan.SPARoot && !scan.Found && !scan.NoProducts && !scan.BotBlocked {
		c.log.Debug().Str("url", url).Msg("SPA root detected, waiting for late render")
		err = chromedp.Run(browserCtx,
			chromedp.Sleep(spaExtraWindow),
			chromedp.Evaluate(domScanScript, &scan),
		)
		if err != nil {
			return c.failure(url, err, timeout)
		}
	}

	switch {
	case scan.BotBlocked:
		c.log.Warn().Str("url", url).Msg("Bot protection markers in rendered page")
		return Result{
			Found:      NotFound,
			Method:     MethodBrowser,
			BotBlocked: true,
			Message:    "Rendered page served an anti-automation challenge",
		}
	case scan.NoProducts:
		return Result{
			Found:     NotFound,
			ClassName: noProductsMarkerName,
			Method:    MethodBrowser,
			Message:   "No products found - detected class: " + noProductsMarkerName,
		}
	case scan.Found:
		return Result{
			Found:     Found,
			ClassName: scan.ClassName,
			Method:    MethodBrowser,
			Message:   "Product table found in rendered DOM",
		}
	default:
		return Result{
			Found:  NotFound,
			Method: MethodBrowser,
		}
	}
}

// failure maps a chromedp error to a tagged result, distinguishing timeout
// from driver unavailability from in-page runtime failures.
func (c *BrowserClassifier) failure(url string, err error, budget time.Duration) Result {
	c.log.Error().Str("url", url).Err(err).Msg("Browser classification failed")

	if errors.Is(err, context.DeadlineExceeded) {
		return errorResult(MethodTimeout, qaerrors.NewClassifierTimeout(string(MethodBrowser), budget))
	}
	if errors.Is(err, context.Canceled) {
		return errorResult(MethodTimeout, qaerrors.NewClassifierTimeout(string(MethodBrowser), budget))
	}
	if isExecNotFound(err) {
		return errorResult(MethodUnavailable, qaerrors.NewUnavailable(string(MethodBrowser), "no browser runtime: "+err.Error()))
	}
	return errorResult(MethodError, qaerrors.New(qaerrors.KindInconclusive, string(MethodBrowser), "browser run failed", err))
}

// isExecNotFound detects launch failures caused by a missing Chrome binary
func isExecNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") ||
		strings.Contains(msg, "fork/exec") ||
		strings.Contains(msg, "exec:")
}
