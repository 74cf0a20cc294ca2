package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	qaerrors "emailqa/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestFetchPage(t *testing.T) {
	// Create a test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that browser-like headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	result, err := FetchPage(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, string(result.Body), "Hello, World!")
	assert.Equal(t, server.URL, result.FinalURL)
}

func TestFetchPageNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "café" in ISO-8859-1
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	}))
	defer server.Close()

	result, err := FetchPage(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)
	assert.Contains(t, string(result.Body), "café")
}

func TestFetchPageRecordsRedirect(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, target.URL+"/final", http.StatusFound)
			return
		}
		w.Write([]byte("landed"))
	}))
	defer target.Close()

	result, err := FetchPage(context.Background(), target.URL+"/start", 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, target.URL+"/final", result.FinalURL)
}

func TestFetchPageConnectionError(t *testing.T) {
	// Nothing listens on this port
	_, err := FetchPage(context.Background(), "http://127.0.0.1:1", 2*time.Second)
	assert.Error(t, err)
	assert.Equal(t, qaerrors.KindConnection, qaerrors.KindOf(err))
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status, finalURL, err := FetchStatus(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, server.URL, finalURL)
}

func TestFetchStatusHeadRejected(t *testing.T) {
	// Some CDNs reject HEAD; the check must fall back to GET
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status, _, err := FetchStatus(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestFetchStatusWithRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	// A 404 is a definitive answer, not a retryable failure
	status, _, err := FetchStatusWithRetries(context.Background(), server.URL, 5*time.Second, 3)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchStatusWithRetriesConnectionError(t *testing.T) {
	_, _, err := FetchStatusWithRetries(context.Background(), "http://127.0.0.1:1", time.Second, 1)
	assert.Error(t, err)
	assert.Equal(t, qaerrors.KindConnection, qaerrors.KindOf(err))
}
