package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/metrics"
	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/pkg/clock"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// Finder locates at most one solution video for a contest; an empty string
// with nil error means "nothing found yet, try again next run"
type Finder interface {
	Find(ctx context.Context, contestName, platform string) (string, error)
}

// Options bound one batch run. Budget is wall-clock; PerItemDelay paces the
// external search API; GracePeriod holds fresh contests back so organically
// uploaded solutions have time to appear.
type Options struct {
	BatchSize    int
	Budget       time.Duration
	PerItemDelay time.Duration
	GracePeriod  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.Budget <= 0 {
		o.Budget = 50 * time.Second
	}
	if o.PerItemDelay <= 0 {
		o.PerItemDelay = 800 * time.Millisecond
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 2 * time.Hour
	}
	return o
}

// BatchResult contains the summary of one enrichment run
type BatchResult struct {
	Processed int           `json:"processed"`
	Found     int           `json:"found"`
	Deferred  int           `json:"deferred"`
	Elapsed   time.Duration `json:"-"`
}

// Runner processes eligible contests sequentially under a wall-clock budget.
// Misses are not persisted, so a contest without a discovered solution stays
// eligible and is retried on every future run.
type Runner struct {
	repository storage.Repository
	finder     Finder
	clk        clock.Clock
	opts       Options
	log        *logger.Logger
}

// NewRunner creates a new enrichment batch runner
func NewRunner(repository storage.Repository, finder Finder, clk clock.Clock, opts Options, log *logger.Logger) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	return &Runner{
		repository: repository,
		finder:     finder,
		clk:        clk,
		opts:       opts.withDefaults(),
		log:        log.WithComponent("enrichment"),
	}
}

// RunBatch processes one batch with the configured batch size
func (r *Runner) RunBatch(ctx context.Context) (*BatchResult, error) {
	return r.RunBatchSize(ctx, r.opts.BatchSize)
}

// RunBatchSize processes one batch capped at batchSize items. The budget is
// checked once per item before starting it; an in-flight call always
// completes. Skipped items are deferred to the next run, never lost.
func (r *Runner) RunBatchSize(ctx context.Context, batchSize int) (*BatchResult, error) {
	if batchSize <= 0 {
		batchSize = r.opts.BatchSize
	}

	start := r.clk.Now()
	cutoff := start.Add(-r.opts.GracePeriod).Unix()

	candidates, err := r.repository.FindSolutionCandidates(ctx, cutoff, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}

	r.log.Info().Int("candidates", len(candidates)).Msg("Starting solution fetch batch")

	result := &BatchResult{}

	for i := range candidates {
		if ctx.Err() != nil {
			result.Deferred = len(candidates) - i
			break
		}
		if elapsed := r.clk.Now().Sub(start); elapsed >= r.opts.Budget {
			result.Deferred = len(candidates) - i
			r.log.Warn().
				Dur("elapsed", elapsed).
				Int("deferred", result.Deferred).
				Msg("Budget exhausted, deferring remaining contests")
			break
		}

		r.processContest(ctx, &candidates[i], result)
		result.Processed++

		// Pace the external API regardless of the item's outcome
		_ = r.clk.Sleep(ctx, r.opts.PerItemDelay)
	}

	result.Elapsed = r.clk.Now().Sub(start)

	status := "completed"
	if result.Deferred > 0 {
		status = "partial"
	}
	metrics.EnrichmentBatches.WithLabelValues(status).Inc()

	r.log.Info().
		Int("processed", result.Processed).
		Int("found", result.Found).
		Int("deferred", result.Deferred).
		Dur("elapsed", result.Elapsed).
		Msg("Solution fetch batch completed")

	return result, nil
}

// processContest handles one contest; its errors are logged, never fatal to
// the batch
func (r *Runner) processContest(ctx context.Context, contest *models.Contest, result *BatchResult) {
	log := r.log.WithContest(contest.Name)

	link, err := r.finder.Find(ctx, contest.Name, contest.Platform)
	if err != nil {
		log.Error().Err(err).Msg("Solution search failed")
		metrics.SolutionSearches.WithLabelValues("error").Inc()
		return
	}
	if link == "" {
		// Not marking anything keeps the contest eligible for the next run
		log.Debug().Msg("No solution found yet")
		metrics.SolutionSearches.WithLabelValues("miss").Inc()
		return
	}

	if err := r.repository.SetSolution(ctx, contest.Name, link, r.clk.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("Failed to persist solution link")
		metrics.SolutionSearches.WithLabelValues("error").Inc()
		return
	}

	result.Found++
	metrics.SolutionSearches.WithLabelValues("found").Inc()
	log.Info().Str("link", link).Msg("Found solution video")
}
