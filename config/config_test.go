package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "production", config.Mode)
	assert.Equal(t, 10*time.Second, config.RequestTimeout)
	assert.Equal(t, 10*time.Second, config.ProductTableTimeout)
	assert.Equal(t, 20*time.Second, config.DetectionBudget)
	assert.Equal(t, 2, config.MaxRetries)
	assert.Equal(t, []string{"localhost:5001", "localtest.me"}, config.FixtureDomains)
	assert.Equal(t, "http://localhost:5001", config.FixtureBaseURL)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, "qareports", config.RedisStream)
	assert.Equal(t, 8, config.LinkConcurrency)
	assert.Equal(t, 3, config.BatchConcurrency)

	// Test with environment variables
	os.Setenv("EMAIL_QA_MODE", "development")
	os.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	os.Setenv("DETECTION_BUDGET_SECONDS", "30")
	os.Setenv("FIXTURE_DOMAINS", "localhost:9999")
	os.Setenv("BROWSERLESS_API_KEY", "test-key")
	os.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	os.Setenv("LINK_CONCURRENCY", "4")
	os.Setenv("BATCH_CONCURRENCY", "2")

	config = LoadConfig()
	assert.Equal(t, "development", config.Mode)
	assert.Equal(t, 3*time.Second, config.RequestTimeout)
	assert.Equal(t, 30*time.Second, config.DetectionBudget)
	assert.Equal(t, []string{"localhost:9999"}, config.FixtureDomains)
	assert.Equal(t, "test-key", config.CloudAPIKey)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 4, config.LinkConcurrency)
	assert.Equal(t, 2, config.BatchConcurrency)

	// Clean up
	os.Unsetenv("EMAIL_QA_MODE")
	os.Unsetenv("REQUEST_TIMEOUT_SECONDS")
	os.Unsetenv("DETECTION_BUDGET_SECONDS")
	os.Unsetenv("FIXTURE_DOMAINS")
	os.Unsetenv("BROWSERLESS_API_KEY")
	os.Unsetenv("MEMCACHE_ADDR")
	os.Unsetenv("LINK_CONCURRENCY")
	os.Unsetenv("BATCH_CONCURRENCY")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	bad := config
	bad.Mode = "staging"
	assert.Error(t, bad.Validate())

	bad = config
	bad.RequestTimeout = 0
	assert.Error(t, bad.Validate())

	bad = config
	bad.DetectionBudget = 5 * time.Second
	bad.ProductTableTimeout = 10 * time.Second
	assert.Error(t, bad.Validate())

	bad = config
	bad.MaxRetries = -1
	assert.Error(t, bad.Validate())

	bad = config
	bad.LinkConcurrency = 0
	assert.Error(t, bad.Validate())

	bad = config
	bad.BatchConcurrency = 0
	assert.Error(t, bad.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"a"}, splitList("a,,"))
	assert.Nil(t, splitList(""))
}
