package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/models"
)

// ErrNotFound is returned when a contest lookup matches nothing
var ErrNotFound = errors.New("contest not found")

// ContestFilter defines filtering options for listing contests
type ContestFilter struct {
	Platform     string
	BookmarkedBy string
	Limit        int
}

// Repository defines the interface for contest persistence. The store is the
// single source of truth for "does this contest already exist": Name is
// unique and records are only ever created or field-updated, never deleted.
type Repository interface {
	// UpsertNewContests inserts contests whose Name is not yet stored and
	// returns how many were inserted. Existing records are never overwritten;
	// a duplicate-key race on create counts as "already exists".
	UpsertNewContests(ctx context.Context, contests []models.Contest) (int, error)

	GetContestByName(ctx context.Context, name string) (*models.Contest, error)
	ListContests(ctx context.Context, filter ContestFilter) ([]models.Contest, error)

	// FindSolutionCandidates returns contests that ended before endedBefore
	// (unix seconds), have no solution link, and are not marked fetched,
	// oldest start first, capped at limit.
	FindSolutionCandidates(ctx context.Context, endedBefore int64, limit int) ([]models.Contest, error)

	// SetSolution attaches a found video link and marks the fetch definitive
	SetSolution(ctx context.Context, name, link string, checkedAt time.Time) error

	// ToggleBookmark flips userID's membership in the contest's bookmark set
	// and returns the updated contest
	ToggleBookmark(ctx context.Context, name, userID string) (*models.Contest, error)

	// Maintenance
	Migrate() error
	Close() error
}
