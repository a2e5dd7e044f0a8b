package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Platform identifiers for the supported upstream sources
const (
	PlatformCodeforces = "Codeforces"
	PlatformLeetCode   = "LeetCode"
	PlatformCodeChef   = "CodeChef"
)

// StringSlice is a custom type for storing string arrays as JSON in SQL databases
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported type for StringSlice: %T", value)
	}
}

// Contest represents one competitive-programming contest aggregated from an
// upstream platform. Name is the de-facto unique key: the same contest fetched
// twice (or from two runs) must collapse to a single stored record.
type Contest struct {
	ID                uint        `gorm:"primaryKey" json:"-" bson:"-"`
	Platform          string      `gorm:"index;not null" json:"platform" bson:"platform"`
	Name              string      `gorm:"uniqueIndex;not null" json:"name" bson:"name"`
	StartTimeUnix     int64       `gorm:"index;not null" json:"startTimeUnix" bson:"startTimeUnix"`
	StartTime         string      `gorm:"not null" json:"startTime" bson:"startTime"`
	EndTime           string      `json:"endTime,omitempty" bson:"endTime,omitempty"`
	DurationSeconds   int64       `json:"durationSeconds,omitempty" bson:"durationSeconds,omitempty"`
	Duration          string      `json:"duration" bson:"duration"`
	URL               string      `gorm:"not null" json:"url" bson:"url"`
	SolutionLink      string      `gorm:"default:''" json:"solutionLink" bson:"solutionLink"`
	SolutionFetched   bool        `gorm:"default:false" json:"solutionFetched" bson:"solutionFetched"`
	LastSolutionCheck *time.Time  `json:"lastSolutionCheck,omitempty" bson:"lastSolutionCheck,omitempty"`
	BookmarkedBy      StringSlice `gorm:"type:json" json:"bookmarkedBy" bson:"bookmarkedBy"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updatedAt" bson:"updatedAt"`
}

// FormatDuration renders a duration in seconds as the human string stored in
// the Duration field ("2 hours 30 minutes")
func FormatDuration(seconds int64) string {
	return fmt.Sprintf("%d hours %d minutes", seconds/3600, (seconds%3600)/60)
}

// EndUnix returns the contest end time in unix seconds
func (c *Contest) EndUnix() int64 {
	return c.StartTimeUnix + c.DurationSeconds
}

// HasEnded reports whether the contest finished before now. Contests without
// a known duration are never considered ended.
func (c *Contest) HasEnded(now time.Time) bool {
	return c.DurationSeconds > 0 && c.EndUnix() < now.Unix()
}

// SolutionEligible is the canonical selection predicate for the enrichment
// batch: the contest ended at least grace ago, no fetch attempt has
// definitively found a link, and no link is attached. The storage
// implementations express the same predicate as queries.
func (c *Contest) SolutionEligible(now time.Time, grace time.Duration) bool {
	return c.DurationSeconds > 0 &&
		!c.SolutionFetched &&
		c.SolutionLink == "" &&
		c.EndUnix() < now.Add(-grace).Unix()
}

// IsBookmarkedBy reports whether userID is in the bookmark set
func (c *Contest) IsBookmarkedBy(userID string) bool {
	for _, id := range c.BookmarkedBy {
		if id == userID {
			return true
		}
	}
	return false
}
