package detect

import (
	"context"
	"net/http"
	"time"

	"emailqa/helpers"
	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"
)

// DirectHTTPClassifier fetches raw HTML over plain HTTP and matches the
// target class patterns. Fastest strategy; blind to JS-rendered content.
type DirectHTTPClassifier struct {
	retries int
	log     *logger.Logger
}

// NewDirectHTTPClassifier creates a direct HTTP classifier with the given
// retry budget for transient network failures.
func NewDirectHTTPClassifier(retries int) *DirectHTTPClassifier {
	return &DirectHTTPClassifier{
		retries: retries,
		log:     logger.ForDetector(string(MethodDirectHTTP)),
	}
}

// Method identifies this strategy
func (c *DirectHTTPClassifier) Method() Method {
	return MethodDirectHTTP
}

// Classify fetches the URL and scans the body for product table classes
func (c *DirectHTTPClassifier) Classify(ctx context.Context, url string, timeout time.Duration) Result {
	var result *helpers.FetchResult
	var err error

	for attempt := 0; attempt <= c.retries; attempt++ {
		result, err = helpers.FetchPage(ctx, url, timeout)
		if err == nil {
			break
		}
		if !qaerrors.Classify(string(MethodDirectHTTP), err).IsRetryable() || ctx.Err() != nil {
			break
		}
		c.log.Debug().Int("attempt", attempt+1).Str("url", url).Err(err).Msg("Retrying fetch")
	}
	if err != nil {
		qaErr := qaerrors.Classify(string(MethodDirectHTTP), err)
		res := errorResult(MethodDirectHTTP, qaErr)
		if qaErr.Kind == qaerrors.KindNetworkTimeout {
			res.Method = MethodTimeout
		}
		return res
	}

	// 403/429 without content almost always means a bot wall
	if result.StatusCode == http.StatusForbidden || result.StatusCode == http.StatusTooManyRequests {
		return Result{
			Found:      NotFound,
			Method:     MethodDirectHTTP,
			BotBlocked: true,
			Error:      qaerrors.NewBotProtection(string(MethodDirectHTTP), "blocked with status "+http.StatusText(result.StatusCode)).Error(),
		}
	}
	if result.StatusCode != http.StatusOK {
		return errorResult(MethodDirectHTTP, qaerrors.NewHTTPStatus(string(MethodDirectHTTP), result.StatusCode))
	}

	body := string(result.Body)

	if HasBotProtectionMarkers(body) {
		c.log.Warn().Str("url", url).Msg("Bot protection markers in response body")
		return Result{
			Found:      NotFound,
			Method:     MethodDirectHTTP,
			BotBlocked: true,
			Message:    "Page served an anti-automation challenge",
		}
	}

	// An explicit empty-listing marker out-ranks any positive pattern
	if HasNoProductsMarker(body) {
		return Result{
			Found:     NotFound,
			ClassName: noProductsMarkerName,
			Method:    MethodDirectHTTP,
			Message:   "No products found - detected class: " + noProductsMarkerName,
		}
	}

	if className, pattern, ok := FirstProductClass(body); ok {
		c.log.Debug().Str("url", url).Str("class", className).Str("pattern", pattern).Msg("Product table class found")
		return Result{
			Found:     Found,
			ClassName: className,
			Method:    MethodDirectHTTP,
			Message:   "Product table found - class: " + className,
		}
	}

	return Result{
		Found:  NotFound,
		Method: MethodDirectHTTP,
	}
}
