package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Runtime mode: "development" or "production"
	Mode string

	// HTTP check configuration
	RequestTimeout      time.Duration
	ProductTableTimeout time.Duration
	DetectionBudget     time.Duration
	MaxRetries          int

	// Fixture domains served by the local stand-in server
	FixtureDomains []string
	FixtureBaseURL string

	// Cloud rendering API (Browserless-compatible)
	CloudAPIKey string
	CloudAPIURL string

	// Headless browser
	ChromePath string

	// Redis configuration for report publishing
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration for detection-result caching
	MemcacheAddr string

	// Batch validation inputs
	TemplateDir      string
	RequirementsPath string
	LinkConcurrency  int
	BatchConcurrency int
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	requestTimeout, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "10"))
	tableTimeout, _ := strconv.Atoi(getEnv("PRODUCT_TABLE_TIMEOUT_SECONDS", "10"))
	detectionBudget, _ := strconv.Atoi(getEnv("DETECTION_BUDGET_SECONDS", "20"))
	maxRetries, _ := strconv.Atoi(getEnv("MAX_RETRIES", "2"))
	linkConcurrency, _ := strconv.Atoi(getEnv("LINK_CONCURRENCY", "8"))
	batchConcurrency, _ := strconv.Atoi(getEnv("BATCH_CONCURRENCY", "3"))

	return Config{
		Mode:                 getEnv("EMAIL_QA_MODE", "production"),
		RequestTimeout:       time.Duration(requestTimeout) * time.Second,
		ProductTableTimeout:  time.Duration(tableTimeout) * time.Second,
		DetectionBudget:      time.Duration(detectionBudget) * time.Second,
		MaxRetries:           maxRetries,
		FixtureDomains:       splitList(getEnv("FIXTURE_DOMAINS", "localhost:5001,localtest.me")),
		FixtureBaseURL:       getEnv("FIXTURE_BASE_URL", "http://localhost:5001"),
		CloudAPIKey:          getEnv("BROWSERLESS_API_KEY", ""),
		CloudAPIURL:          getEnv("CLOUD_API_URL", "https://chrome.browserless.io"),
		ChromePath:           getEnv("CHROME_PATH", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "qareports"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		TemplateDir:          getEnv("TEMPLATE_DIR", "templates"),
		RequirementsPath:     getEnv("REQUIREMENTS_PATH", "requirements.json"),
		LinkConcurrency:      linkConcurrency,
		BatchConcurrency:     batchConcurrency,
	}
}

// Validate checks the configuration for values that would break a run
func (c *Config) Validate() error {
	if c.Mode != "development" && c.Mode != "production" {
		return fmt.Errorf("invalid mode %q: must be development or production", c.Mode)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.DetectionBudget < c.ProductTableTimeout {
		return fmt.Errorf("detection budget %v must cover the product table timeout %v",
			c.DetectionBudget, c.ProductTableTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.LinkConcurrency <= 0 {
		return fmt.Errorf("link concurrency must be positive")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
