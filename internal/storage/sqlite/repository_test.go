package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleContest(name string, startUnix, durationSeconds int64) models.Contest {
	return models.Contest{
		Platform:        models.PlatformCodeforces,
		Name:            name,
		StartTimeUnix:   startUnix,
		StartTime:       time.Unix(startUnix, 0).UTC().Format(time.RFC3339),
		DurationSeconds: durationSeconds,
		Duration:        models.FormatDuration(durationSeconds),
		URL:             "https://codeforces.com/contests/1",
	}
}

func TestUpsertNewContestsInsertsOnlyUnknownNames(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.UpsertNewContests(ctx, []models.Contest{
		sampleContest("Round 900", 1000, 7200),
		sampleContest("Round 901", 2000, 7200),
	})
	if err != nil {
		t.Fatalf("UpsertNewContests: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}

	// Second pass with one known and one new name
	inserted, err = repo.UpsertNewContests(ctx, []models.Contest{
		sampleContest("Round 900", 1000, 7200),
		sampleContest("Round 902", 3000, 7200),
	})
	if err != nil {
		t.Fatalf("UpsertNewContests: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}
}

func TestUpsertNeverOverwritesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpsertNewContests(ctx, []models.Contest{sampleContest("Round 900", 1000, 7200)}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetSolution(ctx, "Round 900", "https://www.youtube.com/watch?v=abc", time.Now()); err != nil {
		t.Fatal(err)
	}

	// Re-upserting the same name must not wipe the solution
	if _, err := repo.UpsertNewContests(ctx, []models.Contest{sampleContest("Round 900", 1000, 7200)}); err != nil {
		t.Fatal(err)
	}

	c, err := repo.GetContestByName(ctx, "Round 900")
	if err != nil {
		t.Fatal(err)
	}
	if c.SolutionLink != "https://www.youtube.com/watch?v=abc" || !c.SolutionFetched {
		t.Fatalf("solution lost on re-upsert: %+v", c)
	}
}

func TestFindSolutionCandidatesSelectsEndedUnresolved(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().Unix()
	_, err := repo.UpsertNewContests(ctx, []models.Contest{
		sampleContest("Ended Old", now-20000, 3600),
		sampleContest("Ended Recent", now-10000, 3600),
		sampleContest("Running", now-100, 7200),
		sampleContest("No Duration", now-20000, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	candidates, err := repo.FindSolutionCandidates(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindSolutionCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2: %+v", len(candidates), candidates)
	}
	// Oldest start first
	if candidates[0].Name != "Ended Old" || candidates[1].Name != "Ended Recent" {
		t.Fatalf("order = [%s, %s]", candidates[0].Name, candidates[1].Name)
	}

	// A resolved contest drops out of the candidate set
	if err := repo.SetSolution(ctx, "Ended Old", "https://www.youtube.com/watch?v=abc", time.Now()); err != nil {
		t.Fatal(err)
	}
	candidates, err = repo.FindSolutionCandidates(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Ended Recent" {
		t.Fatalf("candidates after resolve = %+v", candidates)
	}
}

func TestFindSolutionCandidatesHonorsLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().Unix()
	_, err := repo.UpsertNewContests(ctx, []models.Contest{
		sampleContest("A", now-30000, 3600),
		sampleContest("B", now-20000, 3600),
		sampleContest("C", now-10000, 3600),
	})
	if err != nil {
		t.Fatal(err)
	}

	candidates, err := repo.FindSolutionCandidates(ctx, now, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
}

func TestSetSolutionUnknownContest(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.SetSolution(context.Background(), "Ghost Round", "link", time.Now())
	if err != storage.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetSolutionRecordsCheckTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpsertNewContests(ctx, []models.Contest{sampleContest("Round 900", 1000, 7200)}); err != nil {
		t.Fatal(err)
	}

	checkedAt := time.Now().UTC().Truncate(time.Second)
	if err := repo.SetSolution(ctx, "Round 900", "https://www.youtube.com/watch?v=abc", checkedAt); err != nil {
		t.Fatal(err)
	}

	c, err := repo.GetContestByName(ctx, "Round 900")
	if err != nil {
		t.Fatal(err)
	}
	if c.LastSolutionCheck == nil || !c.LastSolutionCheck.Equal(checkedAt) {
		t.Fatalf("LastSolutionCheck = %v, want %v", c.LastSolutionCheck, checkedAt)
	}
}

func TestToggleBookmark(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpsertNewContests(ctx, []models.Contest{sampleContest("Round 900", 1000, 7200)}); err != nil {
		t.Fatal(err)
	}

	c, err := repo.ToggleBookmark(ctx, "Round 900", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsBookmarkedBy("u1") {
		t.Fatal("expected bookmark set")
	}

	c, err = repo.ToggleBookmark(ctx, "Round 900", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if c.IsBookmarkedBy("u1") {
		t.Fatal("expected bookmark cleared")
	}

	if _, err := repo.ToggleBookmark(ctx, "Ghost Round", "u1"); err != storage.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListContestsFiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	lc := sampleContest("Weekly 400", 2000, 5400)
	lc.Platform = models.PlatformLeetCode
	_, err := repo.UpsertNewContests(ctx, []models.Contest{
		sampleContest("Round 900", 1000, 7200),
		lc,
		sampleContest("Round 901", 3000, 7200),
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := repo.ListContests(ctx, storage.ContestFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Name != "Round 901" || all[2].Name != "Round 900" {
		t.Fatalf("unexpected order: %+v", all)
	}

	cf, err := repo.ListContests(ctx, storage.ContestFilter{Platform: models.PlatformCodeforces})
	if err != nil {
		t.Fatal(err)
	}
	if len(cf) != 2 {
		t.Fatalf("codeforces contests = %d, want 2", len(cf))
	}

	if _, err := repo.ToggleBookmark(ctx, "Weekly 400", "u1"); err != nil {
		t.Fatal(err)
	}
	bm, err := repo.ListContests(ctx, storage.ContestFilter{BookmarkedBy: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bm) != 1 || bm[0].Name != "Weekly 400" {
		t.Fatalf("bookmarked = %+v", bm)
	}
}
