package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/source"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

type stubSource struct {
	name     string
	contests []models.Contest
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]models.Contest, error) {
	return s.contests, s.err
}

// memRepo stores contests keyed by name, mirroring the unique-name rule
type memRepo struct {
	byName map[string]models.Contest
	order  []models.Contest
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{byName: make(map[string]models.Contest)}
}

func (r *memRepo) UpsertNewContests(ctx context.Context, contests []models.Contest) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	inserted := 0
	for _, c := range contests {
		if _, ok := r.byName[c.Name]; ok {
			continue
		}
		r.byName[c.Name] = c
		r.order = append(r.order, c)
		inserted++
	}
	return inserted, nil
}

func (r *memRepo) GetContestByName(ctx context.Context, name string) (*models.Contest, error) {
	if c, ok := r.byName[name]; ok {
		return &c, nil
	}
	return nil, storage.ErrNotFound
}

func (r *memRepo) ListContests(ctx context.Context, filter storage.ContestFilter) ([]models.Contest, error) {
	return r.order, nil
}

func (r *memRepo) FindSolutionCandidates(ctx context.Context, endedBefore int64, limit int) ([]models.Contest, error) {
	return nil, nil
}

func (r *memRepo) SetSolution(ctx context.Context, name, link string, checkedAt time.Time) error {
	return nil
}

func (r *memRepo) ToggleBookmark(ctx context.Context, name, userID string) (*models.Contest, error) {
	return nil, storage.ErrNotFound
}

func (r *memRepo) Migrate() error { return nil }
func (r *memRepo) Close() error   { return nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

func managerWith(sources ...source.ContestSource) *source.Manager {
	m := source.NewManager()
	for _, s := range sources {
		m.Register(s)
	}
	return m
}

func TestRunOrdersByStartTimeDescending(t *testing.T) {
	repo := newMemRepo()
	agg := New(managerWith(
		&stubSource{name: "codeforces", contests: []models.Contest{
			{Name: "Old", StartTimeUnix: 100},
			{Name: "New", StartTimeUnix: 300},
		}},
		&stubSource{name: "leetcode", contests: []models.Contest{
			{Name: "Mid", StartTimeUnix: 200},
		}},
	), repo, 0, testLogger())

	result, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 3 || result.Inserted != 3 {
		t.Fatalf("fetched=%d inserted=%d", result.Fetched, result.Inserted)
	}

	want := []int64{300, 200, 100}
	for i, w := range want {
		if result.Contests[i].StartTimeUnix != w {
			t.Fatalf("contests[%d].StartTimeUnix = %d, want %d", i, result.Contests[i].StartTimeUnix, w)
		}
	}
}

func TestRunTruncatesToMaxKeepingMostRecent(t *testing.T) {
	var contests []models.Contest
	for i := 0; i < 500; i++ {
		contests = append(contests, models.Contest{
			Name:          fmt.Sprintf("Contest %d", i),
			StartTimeUnix: int64(i),
		})
	}

	repo := newMemRepo()
	agg := New(managerWith(&stubSource{name: "codeforces", contests: contests}), repo, 300, testLogger())

	result, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 300 {
		t.Fatalf("fetched = %d, want 300", result.Fetched)
	}
	// Truncation keeps the most recent starts
	if result.Contests[0].StartTimeUnix != 499 || result.Contests[299].StartTimeUnix != 200 {
		t.Fatalf("kept range [%d, %d], want [499, 200]",
			result.Contests[0].StartTimeUnix, result.Contests[299].StartTimeUnix)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	agg := New(managerWith(&stubSource{name: "codeforces", contests: []models.Contest{
		{Name: "Round 900", StartTimeUnix: 100},
	}}), repo, 0, testLogger())

	first, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first.Inserted != 1 || second.Inserted != 0 {
		t.Fatalf("inserted = %d then %d, want 1 then 0", first.Inserted, second.Inserted)
	}
}

func TestRunMergesPartialSuccess(t *testing.T) {
	repo := newMemRepo()
	agg := New(managerWith(
		&stubSource{name: "codeforces", contests: []models.Contest{{Name: "Round 900", StartTimeUnix: 100}}},
		&stubSource{name: "codechef", err: errors.New("gateway timeout")},
	), repo, 0, testLogger())

	result, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 1 || result.Inserted != 1 {
		t.Fatalf("fetched=%d inserted=%d", result.Fetched, result.Inserted)
	}
	if result.Sources["codechef"] != 0 || result.Sources["codeforces"] != 1 {
		t.Fatalf("sources = %v", result.Sources)
	}
}

func TestRunFailsOnStorageError(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("disk full")
	agg := New(managerWith(&stubSource{name: "codeforces", contests: []models.Contest{
		{Name: "Round 900"},
	}}), repo, 0, testLogger())

	if _, err := agg.Run(context.Background()); err == nil {
		t.Fatal("expected error when persistence fails")
	}
}
