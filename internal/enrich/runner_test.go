package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/pkg/clock"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// fakeClock advances only when Sleep is called, which makes budget behavior
// deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return fakeTimer{}
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

// fakeRepo applies the same eligibility rules as the real backends
type fakeRepo struct {
	mu       sync.Mutex
	contests []models.Contest

	candidateCutoffs []int64
	setErr           error
}

func (r *fakeRepo) UpsertNewContests(ctx context.Context, contests []models.Contest) (int, error) {
	return 0, nil
}

func (r *fakeRepo) GetContestByName(ctx context.Context, name string) (*models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contests {
		if r.contests[i].Name == name {
			c := r.contests[i]
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) ListContests(ctx context.Context, filter storage.ContestFilter) ([]models.Contest, error) {
	return nil, nil
}

func (r *fakeRepo) FindSolutionCandidates(ctx context.Context, endedBefore int64, limit int) ([]models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidateCutoffs = append(r.candidateCutoffs, endedBefore)
	var out []models.Contest
	for _, c := range r.contests {
		if c.SolutionFetched || c.SolutionLink != "" {
			continue
		}
		if c.DurationSeconds <= 0 || c.EndUnix() >= endedBefore {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) SetSolution(ctx context.Context, name, link string, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	for i := range r.contests {
		if r.contests[i].Name == name {
			r.contests[i].SolutionLink = link
			r.contests[i].SolutionFetched = true
			t := checkedAt
			r.contests[i].LastSolutionCheck = &t
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *fakeRepo) ToggleBookmark(ctx context.Context, name, userID string) (*models.Contest, error) {
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) Migrate() error { return nil }
func (r *fakeRepo) Close() error   { return nil }

type fakeFinder struct {
	links map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFinder) Find(ctx context.Context, contestName, platform string) (string, error) {
	f.calls = append(f.calls, contestName)
	if err, ok := f.errs[contestName]; ok {
		return "", err
	}
	return f.links[contestName], nil
}

func endedContest(name string, endedAgo time.Duration, at time.Time) models.Contest {
	start := at.Add(-endedAgo - time.Hour)
	return models.Contest{
		Name:            name,
		Platform:        models.PlatformCodeforces,
		StartTimeUnix:   start.Unix(),
		DurationSeconds: 3600,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

func TestRunBatchPersistsFoundSolutions(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{contests: []models.Contest{
		endedContest("Round A", 3*time.Hour, clk.Now()),
		endedContest("Round B", 4*time.Hour, clk.Now()),
	}}
	finder := &fakeFinder{links: map[string]string{
		"Round A": "https://www.youtube.com/watch?v=abc",
	}}

	runner := NewRunner(repo, finder, clk, Options{}, testLogger())
	res, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Processed != 2 || res.Found != 1 || res.Deferred != 0 {
		t.Fatalf("got processed=%d found=%d deferred=%d", res.Processed, res.Found, res.Deferred)
	}

	a, _ := repo.GetContestByName(context.Background(), "Round A")
	if !a.SolutionFetched || a.SolutionLink != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("Round A not persisted: %+v", a)
	}
	if a.LastSolutionCheck == nil {
		t.Fatal("expected LastSolutionCheck to be set")
	}

	// A miss leaves no trace, so the contest stays eligible
	b, _ := repo.GetContestByName(context.Background(), "Round B")
	if b.SolutionFetched || b.SolutionLink != "" || b.LastSolutionCheck != nil {
		t.Fatalf("miss must persist nothing: %+v", b)
	}
}

func TestRunBatchBudgetDefersRemaining(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{}
	for i := 0; i < 10; i++ {
		repo.contests = append(repo.contests, endedContest(
			fmt.Sprintf("Round %d", 900+i), 5*time.Hour, clk.Now()))
	}
	finder := &fakeFinder{}

	runner := NewRunner(repo, finder, clk, Options{
		BatchSize:    10,
		Budget:       time.Second,
		PerItemDelay: 400 * time.Millisecond,
	}, testLogger())

	res, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	// 400ms advances per item: items at 0ms, 400ms, 800ms run; 1200ms >= budget
	if res.Processed != 3 {
		t.Fatalf("processed = %d, want 3", res.Processed)
	}
	if res.Deferred != 7 {
		t.Fatalf("deferred = %d, want 7", res.Deferred)
	}
}

func TestRunBatchCutoffHonorsGracePeriod(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{}
	runner := NewRunner(repo, &fakeFinder{}, clk, Options{GracePeriod: 2 * time.Hour}, testLogger())

	if _, err := runner.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	want := clk.Now().Add(-2 * time.Hour).Unix()
	if len(repo.candidateCutoffs) != 1 || repo.candidateCutoffs[0] != want {
		t.Fatalf("cutoffs = %v, want [%d]", repo.candidateCutoffs, want)
	}
}

func TestRunBatchContinuesPastItemErrors(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{contests: []models.Contest{
		endedContest("Broken", 3*time.Hour, clk.Now()),
		endedContest("Fine", 3*time.Hour, clk.Now()),
	}}
	finder := &fakeFinder{
		errs:  map[string]error{"Broken": errors.New("quota exceeded")},
		links: map[string]string{"Fine": "https://www.youtube.com/watch?v=ok"},
	}

	runner := NewRunner(repo, finder, clk, Options{}, testLogger())
	res, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Processed != 2 || res.Found != 1 {
		t.Fatalf("got processed=%d found=%d", res.Processed, res.Found)
	}
}

func TestRunBatchSizeOverride(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{}
	for i := 0; i < 4; i++ {
		repo.contests = append(repo.contests, endedContest(
			"Starters "+string(rune('1'+i)), 3*time.Hour, clk.Now()))
	}
	finder := &fakeFinder{}

	runner := NewRunner(repo, finder, clk, Options{BatchSize: 5}, testLogger())
	res, err := runner.RunBatchSize(context.Background(), 2)
	if err != nil {
		t.Fatalf("RunBatchSize: %v", err)
	}
	if res.Processed != 2 {
		t.Fatalf("processed = %d, want 2", res.Processed)
	}
	if len(finder.calls) != 2 {
		t.Fatalf("finder calls = %v", finder.calls)
	}
}

func TestRunBatchStopsOnContextCancel(t *testing.T) {
	clk := newFakeClock()
	repo := &fakeRepo{contests: []models.Contest{
		endedContest("One", 3*time.Hour, clk.Now()),
		endedContest("Two", 3*time.Hour, clk.Now()),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	finder := &fakeFinder{}
	runner := NewRunner(repo, finderFunc(func(c context.Context, name, platform string) (string, error) {
		cancel()
		return finder.Find(c, name, platform)
	}), clk, Options{}, testLogger())

	res, err := runner.RunBatch(ctx)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Processed != 1 || res.Deferred != 1 {
		t.Fatalf("got processed=%d deferred=%d", res.Processed, res.Deferred)
	}
}

type finderFunc func(ctx context.Context, contestName, platform string) (string, error)

func (f finderFunc) Find(ctx context.Context, contestName, platform string) (string, error) {
	return f(ctx, contestName, platform)
}
