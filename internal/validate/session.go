package validate

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"emailqa/internal/email"
	"emailqa/internal/runtime"
	"emailqa/logger"
	"emailqa/services/publisher"

	"golang.org/x/sync/errgroup"
)

const defaultLinkConcurrency = 5

// Session orchestrates one full validation of an email template against its
// campaign requirements: parse, metadata comparison, concurrent link checks,
// report assembly.
type Session struct {
	modes       *runtime.Manager
	links       *LinkValidator
	pub         publisher.Publisher
	concurrency int
	log         *logger.Logger
}

// SessionOption adjusts session construction
type SessionOption func(*Session)

// WithPublisher publishes each completed report to the reporting stream
func WithPublisher(p publisher.Publisher) SessionOption {
	return func(s *Session) { s.pub = p }
}

// WithConcurrency bounds how many links are checked at once
func WithConcurrency(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSession creates a validation session
func NewSession(modes *runtime.Manager, links *LinkValidator, opts ...SessionOption) *Session {
	s := &Session{
		modes:       modes,
		links:       links,
		concurrency: defaultLinkConcurrency,
		log:         logger.ForSession(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates one email template. The mode snapshot is taken once up
// front so a concurrent mode switch cannot tear the run. A non-nil error
// still comes with whatever partial report was assembled.
func (s *Session) Run(ctx context.Context, templatePath, requirementsPath string) (*Report, error) {
	started := time.Now()
	settings := s.modes.Snapshot()

	report := &Report{
		Template:       templatePath,
		Mode:           string(settings.Mode),
		MetadataIssues: []MetadataIssue{},
		Links:          []LinkValidation{},
		GeneratedAt:    started,
	}

	runLog := s.log.WithFields(logger.Fields{
		"template": templatePath,
		"mode":     string(settings.Mode),
	})
	runLog.Info().Msg("Validation started")

	parsed, err := email.ParseFile(templatePath)
	if err != nil {
		report.Duration = time.Since(started)
		return report, err
	}
	report.Metadata = parsed.Metadata

	req, err := email.LoadRequirements(requirementsPath)
	if err != nil {
		report.Duration = time.Since(started)
		return report, err
	}

	report.MetadataIssues = CompareMetadata(parsed.Metadata, req.Metadata)
	if issue := CompareCampaignCode(parsed.Metadata, req.CampaignCode); issue != nil {
		report.MetadataIssues = append(report.MetadataIssues, *issue)
	}

	report.Links = s.validateLinks(ctx, parsed.Links, req.UTMParameters, settings)
	report.Duration = time.Since(started)

	runLog.Info().
		Int("links", len(report.Links)).
		Int("passed", report.PassedLinks()).
		Int("metadata_issues", len(report.MetadataIssues)).
		Dur("duration", report.Duration).
		Msg("Validation finished")

	s.publish(report)
	return report, ctx.Err()
}

// validateLinks fans the link checks out with bounded concurrency. Each
// result has its own slot written exactly once; cancellation stops new
// links from being scheduled while in-flight checks finish on their own
// timeouts.
func (s *Session) validateLinks(ctx context.Context, links []email.LinkRecord, expectedUTM map[string]string, settings runtime.Settings) []LinkValidation {
	results := make([]LinkValidation, len(links))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, link := range links {
		if ctx.Err() != nil {
			results[i] = cancelledValidation(link)
			continue
		}
		i, link := i, link
		g.Go(func() error {
			// A slot can open after an abort; check again before starting
			if ctx.Err() != nil {
				results[i] = cancelledValidation(link)
				return nil
			}
			results[i] = s.links.Validate(ctx, link, expectedUTM, settings, Options{CheckProductTable: true})
			return nil
		})
	}

	g.Wait()
	return results
}

func cancelledValidation(link email.LinkRecord) LinkValidation {
	return LinkValidation{
		Href:          link.Href,
		SourceContext: link.SourceContext,
		StatusError:   "cancelled before check started",
		UTMIssues:     []string{},
		Status:        StatusFail,
	}
}

// publish sends the report to the reporting stream when a publisher is
// wired. Publish failures are logged, never surfaced; reporting is best
// effort.
func (s *Session) publish(report *Report) {
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal report for publishing")
		return
	}
	if err := s.pub.Publish(filepath.Base(report.Template), data); err != nil {
		s.log.Error().Err(err).Msg("Failed to publish report")
	}
}
