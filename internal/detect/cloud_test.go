package detect

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCloudScriptResultFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		assert.NotEmpty(t, r.URL.Query().Get("timeout"))

		// The injected script must survive base64+URL encoding
		b64 := r.URL.Query().Get("script")
		decoded, err := base64.StdEncoding.DecodeString(b64)
		assert.NoError(t, err)
		assert.Contains(t, string(decoded), "hasProductTable")

		w.Write([]byte(`{"hasProductTable":true,"hasProductListContainer":false,"hasNoPartsPhrase":false,"className":"product-table-compact"}`))
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, Found, result.Found)
	assert.Equal(t, "product-table-compact", result.ClassName)
	assert.Equal(t, MethodCloudAPI, result.Method)
}

func TestCloudNoPartsPhrasePrecedence(t *testing.T) {
	// An explicit empty-listing signal out-ranks positive flags
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hasProductTable":true,"hasProductListContainer":true,"hasNoPartsPhrase":true,"className":"noPartsPhrase"}`))
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, NotFound, result.Found)
	assert.Equal(t, "noPartsPhrase", result.ClassName)
}

func TestCloudScriptResultInconclusive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hasProductTable":false,"hasProductListContainer":false,"hasNoPartsPhrase":false,"className":null}`))
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, Unknown, result.Found)
	assert.Contains(t, result.Message, "manual verification")
}

func TestCloudHTMLFallback(t *testing.T) {
	// Primary scripted request fails; the parameter-minimized retry returns
	// rendered HTML, which must be scanned directly.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("script") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`<html><body><div class="productListContainer"></div></body></html>`))
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, Found, result.Found)
	assert.Equal(t, "productListContainer", result.ClassName)
	assert.Equal(t, MethodCloudHTML, result.Method)
}

func TestCloudHTMLFallbackNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Nothing relevant</h1></body></html>`))
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, Unknown, result.Found)
	assert.Equal(t, MethodCloudHTML, result.Method)
}

func TestCloudMissingKey(t *testing.T) {
	c := NewCloudClassifier("", "https://chrome.browserless.io")
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, NotFound, result.Found)
	assert.Equal(t, MethodUnavailable, result.Method)
	assert.Contains(t, result.Error, "classifier_unavailable")
}

func TestCloudEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewCloudClassifier("test-key", server.URL)
	result := c.Classify(context.Background(), "https://shop.example.com/products", 5*time.Second)

	assert.Equal(t, NotFound, result.Found)
	assert.Contains(t, result.Error, "malformed_upstream_response")
}
