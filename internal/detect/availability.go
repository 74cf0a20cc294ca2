package detect

import (
	"os/exec"

	"emailqa/config"
	"emailqa/logger"
)

// Availability records which rendering strategies the deployment can use.
// Probed once per process; choosing browser vs. cloud is a deployment-time
// decision, not a per-call fallback.
type Availability struct {
	BrowserRuntime bool
	CloudAPI       bool
}

var chromeBinaries = []string{"chromium", "chromium-browser", "google-chrome", "chrome"}

// Probe checks for a local browser runtime and a provisioned cloud API key
func Probe(cfg config.Config) Availability {
	avail := Availability{
		CloudAPI: cfg.CloudAPIKey != "",
	}

	if cfg.ChromePath != "" {
		if _, err := exec.LookPath(cfg.ChromePath); err == nil {
			avail.BrowserRuntime = true
		}
	}
	if !avail.BrowserRuntime {
		for _, name := range chromeBinaries {
			if _, err := exec.LookPath(name); err == nil {
				avail.BrowserRuntime = true
				break
			}
		}
	}

	logger.Info("Detection availability: browser=%t cloud=%t", avail.BrowserRuntime, avail.CloudAPI)
	return avail
}
