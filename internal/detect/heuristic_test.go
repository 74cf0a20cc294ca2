package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const productRichPage = `<html><body>
<div class="product-grid">
	<div class="product-card"><img src="/img/sku-100.jpg" alt="product photo">Price: $10.99 Add to cart</div>
	<div class="product-card">Price: $24.50 In stock</div>
</div>
<div class="pricing">Sort by | Filter by | 120 products found</div>
<table class="data-table"><tr><td>SKU</td><td>Quantity</td><td>Part number</td></tr></table>
</body></html>`

func TestHeuristicFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productRichPage))
	}))
	defer server.Close()

	c := NewHeuristicClassifier(5 * time.Second)
	result := c.Classify(context.Background(), server.URL, 0)

	assert.Equal(t, Found, result.Found)
	assert.Equal(t, MethodHeuristic, result.Method)
	assert.GreaterOrEqual(t, result.Confidence, 35)
	assert.NotEmpty(t, result.ClassName)
	assert.Contains(t, result.Message, "Probabilistic")
}

func TestHeuristicNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>About us</h1><p>We make things.</p></body></html>`))
	}))
	defer server.Close()

	c := NewHeuristicClassifier(5 * time.Second)
	result := c.Classify(context.Background(), server.URL, 0)

	// The heuristic always takes a stance, never Unknown
	assert.Equal(t, NotFound, result.Found)
	assert.Less(t, result.Confidence, 35)
}

func TestHeuristicErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewHeuristicClassifier(5 * time.Second)
	result := c.Classify(context.Background(), server.URL, 0)

	assert.Equal(t, NotFound, result.Found)
	assert.NotEmpty(t, result.Error)
}

func TestHeuristicUnreachable(t *testing.T) {
	c := NewHeuristicClassifier(time.Second)
	result := c.Classify(context.Background(), "http://127.0.0.1:1", 0)

	assert.Equal(t, NotFound, result.Found)
	assert.NotEmpty(t, result.Error)
}
