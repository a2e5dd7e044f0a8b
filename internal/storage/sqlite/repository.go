package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&models.Contest{})
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertNewContests inserts contests not yet stored, keyed by unique name.
// Lookup-then-create is not atomic across concurrent runs; the unique index
// backstops the race and a duplicate-key create counts as already-exists.
func (r *Repository) UpsertNewContests(ctx context.Context, contests []models.Contest) (int, error) {
	inserted := 0

	for _, c := range contests {
		var existing models.Contest
		err := r.db.WithContext(ctx).Where("name = ?", c.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return inserted, fmt.Errorf("lookup contest %q: %w", c.Name, err)
		}

		c.ID = 0
		c.SolutionLink = ""
		c.SolutionFetched = false
		if c.BookmarkedBy == nil {
			c.BookmarkedBy = models.StringSlice{}
		}

		if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
			if isDuplicate(err) {
				continue
			}
			return inserted, fmt.Errorf("create contest %q: %w", c.Name, err)
		}
		inserted++
	}

	return inserted, nil
}

// GetContestByName retrieves a contest by its unique name
func (r *Repository) GetContestByName(ctx context.Context, name string) (*models.Contest, error) {
	var contest models.Contest
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&contest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &contest, nil
}

// ListContests returns stored contests, most recent start first
func (r *Repository) ListContests(ctx context.Context, filter storage.ContestFilter) ([]models.Contest, error) {
	var contests []models.Contest
	query := r.db.WithContext(ctx).Model(&models.Contest{}).Order("start_time_unix DESC")

	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&contests).Error; err != nil {
		return nil, err
	}

	if filter.BookmarkedBy != "" {
		// Bookmark sets are stored as JSON; filter in memory
		filtered := contests[:0]
		for _, c := range contests {
			if c.IsBookmarkedBy(filter.BookmarkedBy) {
				filtered = append(filtered, c)
			}
		}
		contests = filtered
	}

	return contests, nil
}

// FindSolutionCandidates selects ended, unresolved contests, oldest first
func (r *Repository) FindSolutionCandidates(ctx context.Context, endedBefore int64, limit int) ([]models.Contest, error) {
	var contests []models.Contest
	err := r.db.WithContext(ctx).
		Where("duration_seconds > 0 AND start_time_unix + duration_seconds < ?", endedBefore).
		Where("solution_fetched = ?", false).
		Where("solution_link = '' OR solution_link IS NULL").
		Order("start_time_unix ASC").
		Limit(limit).
		Find(&contests).Error
	if err != nil {
		return nil, err
	}
	return contests, nil
}

// SetSolution attaches a found video link and marks the contest resolved
func (r *Repository) SetSolution(ctx context.Context, name, link string, checkedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Contest{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"solution_link":       link,
			"solution_fetched":    true,
			"last_solution_check": checkedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ToggleBookmark flips userID's membership in the contest's bookmark set
func (r *Repository) ToggleBookmark(ctx context.Context, name, userID string) (*models.Contest, error) {
	contest, err := r.GetContestByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if contest.IsBookmarkedBy(userID) {
		kept := make(models.StringSlice, 0, len(contest.BookmarkedBy))
		for _, id := range contest.BookmarkedBy {
			if id != userID {
				kept = append(kept, id)
			}
		}
		contest.BookmarkedBy = kept
	} else {
		contest.BookmarkedBy = append(contest.BookmarkedBy, userID)
	}

	if err := r.db.WithContext(ctx).Model(contest).Update("bookmarked_by", contest.BookmarkedBy).Error; err != nil {
		return nil, err
	}
	return contest, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
