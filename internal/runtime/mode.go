// Package runtime holds the process-wide mode that can be switched between
// development and production without a restart.
package runtime

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"emailqa/config"
)

// Mode is the operating mode of the validator
type Mode string

const (
	// Development enables fixture-domain redirection and simulated detection
	Development Mode = "development"
	// Production runs full real detection against every host
	Production Mode = "production"
)

// Settings is an immutable snapshot of mode-dependent behavior. Each
// validation run takes one snapshot up front so a mode switch cannot tear
// a LinkValidation mid-flight.
type Settings struct {
	Mode                   Mode
	EnableFixtureRedirects bool
	RequestTimeout         time.Duration
	ProductTableTimeout    time.Duration
	DetectionBudget        time.Duration
	MaxRetries             int
	FixtureDomains         []string
	FixtureBaseURL         string
}

// IsDevelopment reports whether the snapshot was taken in development mode
func (s Settings) IsDevelopment() bool {
	return s.Mode == Development
}

// IsProduction reports whether the snapshot was taken in production mode
func (s Settings) IsProduction() bool {
	return s.Mode == Production
}

// IsFixtureDomain reports whether the URL's host matches one of the
// configured local fixture domains. Hosts are matched exactly, not by
// substring, so a production host that happens to embed a fixture name is
// never misclassified.
func (s Settings) IsFixtureDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Host
	for _, domain := range s.FixtureDomains {
		if strings.EqualFold(host, domain) {
			return true
		}
	}
	return false
}

// FixtureURL rewrites a destination URL to its local fixture stand-in,
// preserving path and query parameters.
func (s Settings) FixtureURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	path := parsed.Path
	if path == "" || path == "/" {
		path = "/en"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	fixture := strings.TrimRight(s.FixtureBaseURL, "/") + path
	if parsed.RawQuery != "" {
		fixture += "?" + parsed.RawQuery
	}
	return fixture, nil
}

// Manager guards the current mode. Reads take a consistent snapshot;
// SetMode flips the mode for subsequent validations only.
type Manager struct {
	mu  sync.RWMutex
	cfg config.Config
}

// NewManager creates a manager initialized from the loaded configuration
func NewManager(cfg config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Snapshot returns the settings for one validation run
func (m *Manager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mode := Mode(m.cfg.Mode)
	settings := Settings{
		Mode:                mode,
		RequestTimeout:      m.cfg.RequestTimeout,
		ProductTableTimeout: m.cfg.ProductTableTimeout,
		DetectionBudget:     m.cfg.DetectionBudget,
		MaxRetries:          m.cfg.MaxRetries,
		FixtureDomains:      append([]string(nil), m.cfg.FixtureDomains...),
		FixtureBaseURL:      m.cfg.FixtureBaseURL,
	}

	if mode == Development {
		settings.EnableFixtureRedirects = true
		// Shorter budgets keep the dev loop fast
		settings.RequestTimeout = minDuration(settings.RequestTimeout, 5*time.Second)
		settings.ProductTableTimeout = minDuration(settings.ProductTableTimeout, 5*time.Second)
	} else {
		settings.EnableFixtureRedirects = false
	}

	return settings
}

// Mode returns the current mode
func (m *Manager) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Mode(m.cfg.Mode)
}

// SetMode switches the runtime mode. Validations already in flight keep
// the snapshot they started with.
func (m *Manager) SetMode(mode Mode) error {
	if mode != Development && mode != Production {
		return fmt.Errorf("invalid mode %q: must be development or production", mode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Mode = string(mode)
	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
