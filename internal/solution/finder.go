package solution

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// Video is one candidate result from the video search API
type Video struct {
	ID      string
	Title   string
	Channel string
}

// SearchClient abstracts the external video search API
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int64) ([]Video, error)
}

// solutionKeywords mark a candidate title as solution-shaped even when it
// does not repeat the contest name verbatim
var solutionKeywords = []string{"solution", "editorial", "tutorial"}

// Finder locates at most one solution video for a contest. Matching is a
// deliberate heuristic: a plausible false positive beats total silence.
type Finder struct {
	client     SearchClient
	maxResults int64
	log        *logger.Logger
}

// NewFinder creates a new solution finder
func NewFinder(client SearchClient, maxResults int64, log *logger.Logger) *Finder {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Finder{
		client:     client,
		maxResults: maxResults,
		log:        log.WithComponent("solution-finder"),
	}
}

// Find searches for a solution video, trying query variants from most
// specific to most generic and stopping at the first variant with any
// candidates. Returns "" when nothing at all is found.
func (f *Finder) Find(ctx context.Context, contestName, platform string) (string, error) {
	for _, query := range queryVariants(contestName, platform) {
		videos, err := f.client.Search(ctx, query, f.maxResults)
		if err != nil {
			return "", fmt.Errorf("search %q: %w", query, err)
		}
		if len(videos) == 0 {
			continue
		}

		best := pickCandidate(contestName, videos)
		f.log.Debug().
			Str("contest", contestName).
			Str("query", query).
			Str("video", best.Title).
			Msg("Selected solution candidate")

		return watchURL(best.ID), nil
	}

	f.log.Debug().Str("contest", contestName).Msg("No solution video found")
	return "", nil
}

// queryVariants builds the ordered search queries for a contest
func queryVariants(contestName, platform string) []string {
	variants := make([]string, 0, 3)
	if platform != "" {
		variants = append(variants, fmt.Sprintf("%s %s editorial", contestName, platform))
	}
	variants = append(variants, contestName+" solution")
	if sanitized := sanitize(contestName); sanitized != contestName {
		variants = append(variants, sanitized+" solution")
	}
	return variants
}

// pickCandidate returns the first video whose title contains the contest name
// (normalized) or any solution keyword, falling back to the first candidate
func pickCandidate(contestName string, videos []Video) Video {
	want := normalize(contestName)
	for _, v := range videos {
		if want != "" && strings.Contains(normalize(v.Title), want) {
			return v
		}
		lower := strings.ToLower(v.Title)
		for _, kw := range solutionKeywords {
			if strings.Contains(lower, kw) {
				return v
			}
		}
	}
	return videos[0]
}

// normalize lowercases and strips everything non-alphanumeric so titles like
// "Weekly Contest 400 | Editorial!" still contain "weeklycontest400"
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitize keeps letters, digits and single spaces for the generic query
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
