// Package worker fans one validation out over multiple locale templates.
package worker

import (
	"context"
	"sync"

	"emailqa/internal/validate"
	"emailqa/logger"

	"golang.org/x/sync/semaphore"
)

// Runner executes one template validation
type Runner interface {
	Run(ctx context.Context, templatePath, requirementsPath string) (*validate.Report, error)
}

// BatchResult pairs one template with its report or error
type BatchResult struct {
	Template string
	Report   *validate.Report
	Err      error
}

// Batch validates a set of templates concurrently. Templates are
// independent; one failing never aborts the others.
type Batch struct {
	runner      Runner
	concurrency int64
	log         *logger.Logger
}

// NewBatch creates a batch worker with bounded concurrency
func NewBatch(runner Runner, concurrency int) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		runner:      runner,
		concurrency: int64(concurrency),
		log:         logger.ForWorker(),
	}
}

// Run validates every template and returns one result per template, in
// input order. Cancellation stops further templates from being scheduled;
// templates already in flight run on to their natural timeouts and their
// results are still collected.
func (b *Batch) Run(ctx context.Context, templates []string, requirementsPath string) []BatchResult {
	results := make([]BatchResult, len(templates))
	sem := semaphore.NewWeighted(b.concurrency)
	var wg sync.WaitGroup

	for i, tpl := range templates {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting for a slot; nothing further starts
			b.log.Warn().Str("template", tpl).Msg("Batch cancelled before template was scheduled")
			results[i] = BatchResult{Template: tpl, Err: err}
			continue
		}

		i, tpl := i, tpl

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			// The session observes cancellation at its own scheduling
			// points; link checks already started run to their timeouts.
			report, err := b.runner.Run(ctx, tpl, requirementsPath)
			results[i] = BatchResult{Template: tpl, Report: report, Err: err}
		}()
	}

	wg.Wait()
	return results
}
