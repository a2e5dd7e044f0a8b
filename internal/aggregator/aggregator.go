package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/metrics"
	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/source"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// DefaultMaxContests bounds how many merged contests one run persists
const DefaultMaxContests = 300

// Aggregator fans out to all contest sources, merges partial successes and
// persists the new records
type Aggregator struct {
	manager     *source.Manager
	repository  storage.Repository
	maxContests int
	log         *logger.Logger
}

// New creates a new aggregator
func New(manager *source.Manager, repository storage.Repository, maxContests int, log *logger.Logger) *Aggregator {
	if maxContests <= 0 {
		maxContests = DefaultMaxContests
	}
	return &Aggregator{
		manager:     manager,
		repository:  repository,
		maxContests: maxContests,
		log:         log.WithComponent("aggregator"),
	}
}

// Result contains the summary of one aggregation run
type Result struct {
	Fetched  int            `json:"fetched"`
	Inserted int            `json:"inserted"`
	Sources  map[string]int `json:"sources"`
	Contests []models.Contest `json:"-"`
	Duration time.Duration  `json:"-"`
}

// Run fetches from every source concurrently, merges whatever succeeded,
// orders by start time descending, truncates to the retention budget and
// persists the records that are not yet stored. A failing source contributes
// zero contests; only a storage failure fails the run.
func (a *Aggregator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	a.log.Info().Msg("Starting contest aggregation")

	results := a.manager.FetchAll(ctx)

	merged := make([]models.Contest, 0)
	sources := make(map[string]int, len(results))
	for _, r := range results {
		if r.Err != nil {
			a.log.Warn().Err(r.Err).Str("source", r.Source).Msg("Source fetch failed")
			sources[r.Source] = 0
			metrics.ContestsFetched.WithLabelValues(r.Source, "error").Inc()
			continue
		}
		sources[r.Source] = len(r.Contests)
		merged = append(merged, r.Contests...)
		metrics.ContestsFetched.WithLabelValues(r.Source, "ok").Add(float64(len(r.Contests)))
	}

	// Most recent start first; a later start always ranks ahead regardless
	// of which adapter finished first
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartTimeUnix > merged[j].StartTimeUnix
	})

	if len(merged) > a.maxContests {
		merged = merged[:a.maxContests]
	}

	inserted, err := a.repository.UpsertNewContests(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to persist contests: %w", err)
	}
	metrics.ContestsInserted.Add(float64(inserted))

	result := &Result{
		Fetched:  len(merged),
		Inserted: inserted,
		Sources:  sources,
		Contests: merged,
		Duration: time.Since(start),
	}

	a.log.Info().
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Dur("duration", result.Duration).
		Msg("Aggregation completed")

	return result, nil
}
