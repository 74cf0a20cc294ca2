package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"emailqa/config"
	"emailqa/internal/detect"
	"emailqa/internal/runtime"
	"emailqa/internal/validate"
	"emailqa/logger"
	"emailqa/services/cache"
	"emailqa/services/publisher"
	"emailqa/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Mode).
		Dur("request_timeout", cfg.RequestTimeout).
		Dur("detection_budget", cfg.DetectionBudget).
		Msg("Starting email QA validator")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	// Probe which rendering strategies this deployment can use
	avail := detect.Probe(cfg)

	arbitratorOpts := []detect.Option{}
	if services.Cache != nil {
		arbitratorOpts = append(arbitratorOpts, detect.WithCache(services.Cache))
	}

	arbitrator := detect.NewArbitrator(
		avail,
		detect.NewBrowserClassifier(cfg.ChromePath),
		detect.NewCloudClassifier(cfg.CloudAPIKey, cfg.CloudAPIURL),
		detect.NewDirectHTTPClassifier(cfg.MaxRetries),
		detect.NewHeuristicClassifier(cfg.RequestTimeout),
		arbitratorOpts...,
	)

	modes := runtime.NewManager(cfg)
	session := validate.NewSession(
		modes,
		validate.NewLinkValidator(arbitrator),
		validate.WithConcurrency(cfg.LinkConcurrency),
		validate.WithPublisher(services.Publisher),
	)

	templates, err := resolveTemplates(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve templates")
	}
	if len(templates) == 0 {
		log.Fatal().Str("dir", cfg.TemplateDir).Msg("No templates to validate")
	}

	log.Info().Int("template_count", len(templates)).Msg("Validating templates")

	batch := worker.NewBatch(session, cfg.BatchConcurrency)

	// Run the batch in a goroutine so signals can cancel scheduling
	batchDone := make(chan []worker.BatchResult, 1)
	go func() {
		batchDone <- batch.Run(ctx, templates, cfg.RequirementsPath)
	}()

	var results []worker.BatchResult
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		// In-flight validations finish on their own timeouts
		results = <-batchDone
	case results = <-batchDone:
	}

	failed := summarize(results)

	if services.Publisher != nil {
		if err := services.Publisher.TrimStreams(); err != nil {
			log.Warn().Err(err).Msg("Failed to trim report streams")
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Validation finished with failures")
		services.Cleanup()
		os.Exit(1)
	}
	log.Info().Msg("Validation finished")
}

// summarize logs per-template outcomes and returns how many templates had
// failing links, metadata issues, or errors.
func summarize(results []worker.BatchResult) int {
	log := logger.Default
	failed := 0

	for _, res := range results {
		if res.Err != nil {
			failed++
			log.WithError(res.Err).Error().Str("template", res.Template).Msg("Template validation errored")
			continue
		}
		report := res.Report
		if report.FailedLinks() > 0 || len(report.MetadataIssues) > 0 {
			failed++
		}
		log.Info().
			Str("template", res.Template).
			Int("links_passed", report.PassedLinks()).
			Int("links_failed", report.FailedLinks()).
			Int("metadata_issues", len(report.MetadataIssues)).
			Msg("Template validated")
	}
	return failed
}

// resolveTemplates takes templates from the command line, or scans the
// configured template directory for HTML files.
func resolveTemplates(cfg *config.Config) ([]string, error) {
	if args := os.Args[1:]; len(args) > 0 {
		return args, nil
	}

	pattern := filepath.Join(cfg.TemplateDir, "*.html")
	templates, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan template directory: %w", err)
	}
	sort.Strings(templates)
	return templates, nil
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices wires the optional cache and publisher backends. Both
// are best effort: the validator runs without them, just slower and without
// stream reporting.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.LogError("cache", err, "Memcache at %s not reachable, detection caching disabled", cfg.MemcacheAddr)
		} else {
			services.Cache = cacheService
			logger.LogInfo("cache", "Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.LogInfo("publisher", "Publishing reports to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services
}
