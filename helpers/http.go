package helpers

import (
	"bytes"
	"context"
	"io"
	mathrand "math/rand"
	"net/http"
	"time"

	qaerrors "emailqa/pkg/errors"

	"golang.org/x/net/html/charset"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
	}
)

// FetchResult is the outcome of a single GET, body already UTF-8 converted
type FetchResult struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// SetBrowserHeaders applies browser-like headers so destination pages do not
// serve a reduced bot variant.
func SetBrowserHeaders(req *http.Request) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// FetchPage sends a GET with browser-like headers, follows redirects, and
// returns the status, the UTF-8 converted body, and the final resolved URL.
// Transport failures are classified into the error taxonomy.
func FetchPage(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, qaerrors.NewConnection("http", "failed to create request", err)
	}
	SetBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, qaerrors.Classify("http", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, qaerrors.Classify("http", err)
	}

	utf8Body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, qaerrors.NewMalformed("http", "failed to convert body to UTF-8", err)
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Body:       utf8Body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// FetchStatus resolves a URL's HTTP status without downloading the body.
// HEAD first; some marketing CDNs reject HEAD, so a 405 falls back to GET.
func FetchStatus(ctx context.Context, url string, timeout time.Duration) (int, string, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, "", qaerrors.NewConnection("http", "failed to create request", err)
	}
	SetBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", qaerrors.Classify("http", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, "", qaerrors.NewConnection("http", "failed to create request", err)
		}
		SetBrowserHeaders(getReq)
		getResp, err := client.Do(getReq)
		if err != nil {
			return 0, "", qaerrors.Classify("http", err)
		}
		io.Copy(io.Discard, getResp.Body)
		getResp.Body.Close()
		return getResp.StatusCode, getResp.Request.URL.String(), nil
	}

	return resp.StatusCode, resp.Request.URL.String(), nil
}

// FetchStatusWithRetries repeats FetchStatus for retryable failures only
func FetchStatusWithRetries(ctx context.Context, url string, timeout time.Duration, retries int) (int, string, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		status, finalURL, err := FetchStatus(ctx, url, timeout)
		if err == nil {
			return status, finalURL, nil
		}
		lastErr = err

		qaErr := qaerrors.Classify("http", err)
		if !qaErr.IsRetryable() {
			return 0, "", qaErr
		}
		if ctx.Err() != nil {
			return 0, "", qaerrors.Classify("http", ctx.Err())
		}
	}
	return 0, "", lastErr
}

// toUTF8 converts a body to UTF-8 based on the Content-Type header and
// the body content itself.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
