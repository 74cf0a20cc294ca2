// Package cache provides the shared cache behind detection results, so
// repeated links across templates in one batch are not re-rendered.
package cache

import (
	"time"
)

// CacheService is the cache behind per-URL detection verdicts
type CacheService interface {
	// Get retrieves a cached value
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a cached value
	Delete(key string) error

	// Ping verifies the cache backend is reachable
	Ping() error
}
