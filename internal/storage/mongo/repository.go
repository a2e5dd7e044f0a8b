package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
)

const (
	collectionName = "contests"
	connectTimeout = 10 * time.Second
)

// Repository implements storage.Repository using MongoDB
type Repository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to MongoDB and returns a contest repository
func New(uri, dbName string) (*Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		discCtx, discCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer discCancel()
		_ = client.Disconnect(discCtx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Repository{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}, nil
}

// Migrate ensures the unique name index the upsert-new semantics rely on
func (r *Repository) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "startTimeUnix", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Close disconnects the MongoDB client
func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// UpsertNewContests inserts contests not yet stored, keyed by unique name.
// A duplicate-key insert from a concurrent run counts as already-exists.
func (r *Repository) UpsertNewContests(ctx context.Context, contests []models.Contest) (int, error) {
	inserted := 0

	for _, c := range contests {
		err := r.collection.FindOne(ctx, bson.M{"name": c.Name}).Err()
		if err == nil {
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return inserted, fmt.Errorf("lookup contest %q: %w", c.Name, err)
		}

		c.SolutionLink = ""
		c.SolutionFetched = false
		if c.BookmarkedBy == nil {
			c.BookmarkedBy = models.StringSlice{}
		}
		now := time.Now().UTC()
		c.CreatedAt = now
		c.UpdatedAt = now

		if _, err := r.collection.InsertOne(ctx, c); err != nil {
			if mongo.IsDuplicateKeyError(err) {
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
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&contest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &contest, nil
}

// ListContests returns stored contests, most recent start first
func (r *Repository) ListContests(ctx context.Context, filter storage.ContestFilter) ([]models.Contest, error) {
	query := bson.M{}
	if filter.Platform != "" {
		query["platform"] = filter.Platform
	}
	if filter.BookmarkedBy != "" {
		query["bookmarkedBy"] = filter.BookmarkedBy
	}

	opts := options.Find().SetSort(bson.D{{Key: "startTimeUnix", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// FindSolutionCandidates selects ended, unresolved contests, oldest first
func (r *Repository) FindSolutionCandidates(ctx context.Context, endedBefore int64, limit int) ([]models.Contest, error) {
	filter := bson.M{
		"durationSeconds": bson.M{"$gt": 0},
		"$expr": bson.M{
			"$lt": bson.A{
				bson.M{"$add": bson.A{"$startTimeUnix", "$durationSeconds"}},
				endedBefore,
			},
		},
		"solutionFetched": false,
		"$or": bson.A{
			bson.M{"solutionLink": bson.M{"$exists": false}},
			bson.M{"solutionLink": ""},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "startTimeUnix", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// SetSolution attaches a found video link and marks the contest resolved
func (r *Repository) SetSolution(ctx context.Context, name, link string, checkedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"solutionLink":      link,
			"solutionFetched":   true,
			"lastSolutionCheck": checkedAt,
			"updatedAt":         time.Now().UTC(),
		},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"name": name}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
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

	var update bson.M
	if contest.IsBookmarkedBy(userID) {
		update = bson.M{"$pull": bson.M{"bookmarkedBy": userID}}
		kept := make(models.StringSlice, 0, len(contest.BookmarkedBy))
		for _, id := range contest.BookmarkedBy {
			if id != userID {
				kept = append(kept, id)
			}
		}
		contest.BookmarkedBy = kept
	} else {
		update = bson.M{"$addToSet": bson.M{"bookmarkedBy": userID}}
		contest.BookmarkedBy = append(contest.BookmarkedBy, userID)
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"name": name}, update); err != nil {
		return nil, err
	}
	return contest, nil
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
