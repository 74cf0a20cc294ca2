package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcached. Detection
// verdicts are small JSON blobs, well inside memcached item limits.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a memcache-backed cache
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a cached value; a miss surfaces as memcache.ErrCacheMiss
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a cached value
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}

// Ping verifies the memcached server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
