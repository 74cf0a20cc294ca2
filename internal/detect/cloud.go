package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"
)

// cloudScanScript runs inside the rendering provider's browser. It scans the
// live DOM for the widget classes and also the root container's markup,
// since on single-page applications one can lag the other.
const cloudScanScript = `
(() => {
	const result = {
		hasProductTable: false,
		hasProductListContainer: false,
		hasNoPartsPhrase: false,
		className: null,
	};

	if (document.getElementsByClassName('noPartsPhrase').length > 0) {
		result.hasNoPartsPhrase = true;
		result.className = 'noPartsPhrase';
		return result;
	}

	for (const el of document.querySelectorAll('*[class]')) {
		for (const cls of el.classList) {
			if (cls.startsWith('product-table')) {
				result.hasProductTable = true;
				result.className = result.className || cls;
			} else if (cls.endsWith('productListContainer')) {
				result.hasProductListContainer = true;
				result.className = result.className || cls;
			}
		}
	}

	// SPA roots can render ahead of or behind the class list walk above
	const root = document.getElementById('root') || document.getElementById('app');
	if (root && !result.className) {
		const markup = root.innerHTML;
		if (markup.includes('noPartsPhrase')) {
			result.hasNoPartsPhrase = true;
			result.className = 'noPartsPhrase';
		} else if (markup.includes('product-table')) {
			result.hasProductTable = true;
			result.className = 'product-table';
		} else if (markup.includes('productListContainer')) {
			result.hasProductListContainer = true;
			result.className = 'productListContainer';
		}
	}
	return result;
})()`

// cloudScan is the JSON shape the injected script returns
type cloudScan struct {
	HasProductTable         bool   `json:"hasProductTable"`
	HasProductListContainer bool   `json:"hasProductListContainer"`
	HasNoPartsPhrase        bool   `json:"hasNoPartsPhrase"`
	ClassName               string `json:"className"`
}

// CloudClassifier delegates rendering to a third-party HTTP API. It is the
// deployment-time substitute for the local browser classifier when no
// browser runtime is configured but an API key is provisioned.
type CloudClassifier struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewCloudClassifier creates a cloud rendering classifier
func NewCloudClassifier(apiKey, baseURL string) *CloudClassifier {
	return &CloudClassifier{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		log:     logger.ForDetector(string(MethodCloudAPI)),
	}
}

// Method identifies this strategy
func (c *CloudClassifier) Method() Method {
	return MethodCloudAPI
}

// encodedScript base64-encodes then URL-encodes the injected script so it
// survives transport as a query parameter.
func encodedScript() string {
	b64 := base64.StdEncoding.EncodeToString([]byte(cloudScanScript))
	return url.QueryEscape(b64)
}

// Classify renders the URL through the cloud API. The primary request
// injects the DOM scan script; on transport failure a parameter-minimized
// request fetches rendered HTML instead, which is scanned directly.
func (c *CloudClassifier) Classify(ctx context.Context, targetURL string, timeout time.Duration) Result {
	if c.apiKey == "" {
		return errorResult(MethodUnavailable,
			qaerrors.NewUnavailable(string(MethodCloudAPI), "cloud rendering API key not configured"))
	}

	body, err := c.request(ctx, targetURL, timeout, true)
	if err != nil {
		c.log.Warn().Str("url", targetURL).Err(err).Msg("Primary scripted request failed, falling back to raw render")
		body, err = c.request(ctx, targetURL, timeout, false)
		if err != nil {
			return errorResult(MethodCloudAPI, qaerrors.Classify(string(MethodCloudAPI), err))
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return errorResult(MethodCloudAPI,
			qaerrors.NewMalformed(string(MethodCloudAPI), "empty response body from rendering API", nil))
	}

	return c.classifyBody(targetURL, body)
}

// request issues one rendering API call. withScript controls whether the
// scan script is injected; the fallback request carries only the URL and
// render flag.
func (c *CloudClassifier) request(ctx context.Context, targetURL string, timeout time.Duration, withScript bool) ([]byte, error) {
	params := url.Values{}
	params.Set("token", c.apiKey)
	params.Set("url", targetURL)
	params.Set("timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	if withScript {
		params.Set("render", "true")
	}

	apiURL := c.baseURL + "/content?" + params.Encode()
	if withScript {
		// The script is already base64+URL encoded; Values.Encode would
		// escape it a second time.
		apiURL += "&script=" + encodedScript()
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, qaerrors.NewConnection(string(MethodCloudAPI), "failed to create request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, qaerrors.Classify(string(MethodCloudAPI), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, qaerrors.NewHTTPStatus(string(MethodCloudAPI), resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// classifyBody disambiguates the two response shapes the API produces:
// JSON (the injected script's return value) or raw HTML (script injection
// silently failed or was disabled). The HTML path is a required degradation,
// not an error.
func (c *CloudClassifier) classifyBody(targetURL string, body []byte) Result {
	trimmed := strings.TrimSpace(string(body))

	if strings.HasPrefix(trimmed, "{") {
		var scan cloudScan
		if err := json.Unmarshal(body, &scan); err == nil {
			return c.fromScan(targetURL, scan)
		}
		c.log.Warn().Str("url", targetURL).Msg("Response looked like JSON but did not parse, scanning as HTML")
	}

	return c.fromHTML(targetURL, trimmed)
}

func (c *CloudClassifier) fromScan(targetURL string, scan cloudScan) Result {
	switch {
	case scan.HasNoPartsPhrase:
		return Result{
			Found:     NotFound,
			ClassName: noProductsMarkerName,
			Method:    MethodCloudAPI,
			Message:   "No products found - detected class: " + noProductsMarkerName,
		}
	case scan.HasProductTable || scan.HasProductListContainer:
		className := scan.ClassName
		if className == "" {
			className = productTablePrefix
		}
		c.log.Debug().Str("url", targetURL).Str("class", className).Msg("Product table found via cloud script")
		return Result{
			Found:     Found,
			ClassName: className,
			Method:    MethodCloudAPI,
			Message:   "Product table found - class: " + className,
		}
	default:
		// The script ran but saw neither target classes nor the empty
		// marker; the render may have been incomplete.
		return unknownResult(MethodCloudAPI,
			"Unknown - rendered page could not be fully evaluated - manual verification required")
	}
}

func (c *CloudClassifier) fromHTML(targetURL, html string) Result {
	if HasNoProductsMarker(html) {
		return Result{
			Found:     NotFound,
			ClassName: noProductsMarkerName,
			Method:    MethodCloudHTML,
			Message:   "No products found - detected class: " + noProductsMarkerName,
		}
	}
	if className, _, ok := FirstProductClass(html); ok {
		c.log.Debug().Str("url", targetURL).Str("class", className).Msg("Product table found via HTML fallback")
		return Result{
			Found:     Found,
			ClassName: className,
			Method:    MethodCloudHTML,
			Message:   "Product table found - class: " + className,
		}
	}
	return unknownResult(MethodCloudHTML,
		"Unknown - no target classes in rendered HTML - manual verification required")
}
