package codechef

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Prabhat2912/contest-tracker/internal/config"
	"github.com/Prabhat2912/contest-tracker/internal/models"
	"github.com/Prabhat2912/contest-tracker/internal/source"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
	"github.com/Prabhat2912/contest-tracker/pkg/ratelimit"
)

const defaultURL = "https://www.codechef.com/api/list/contests/all"

// legacyDateLayout matches CodeChef's non-ISO date strings ("15 Mar 2025 20:00:00")
const legacyDateLayout = "02 Jan 2006 15:04:05"

type apiResponse struct {
	FutureContests []apiContest `json:"future_contests"`
	PastContests   []apiContest `json:"past_contests"`
}

type apiContest struct {
	Code         string `json:"contest_code"`
	Name         string `json:"contest_name"`
	StartDate    string `json:"contest_start_date"`
	EndDate      string `json:"contest_end_date"`
	StartDateISO string `json:"contest_start_date_iso"`
	EndDateISO   string `json:"contest_end_date_iso"`
}

// Source implements source.ContestSource for the CodeChef API
type Source struct {
	url     string
	maxPast int
	client  *http.Client
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a new CodeChef source
func New(cfg config.SourceConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	url := cfg.URL
	if url == "" {
		url = defaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPast := cfg.MaxResults
	if maxPast <= 0 {
		maxPast = 50
	}

	return &Source{
		url:     url,
		maxPast: maxPast,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log.WithSource("codechef"),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "codechef"
}

// Fetch retrieves the CodeChef contest list. Future contests are taken whole;
// past contests are capped because the feed reaches back years.
func (s *Source) Fetch(ctx context.Context) ([]models.Contest, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterCodeChef); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("codechef API returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.FutureContests == nil && body.PastContests == nil {
		return nil, fmt.Errorf("codechef API returned no contest lists")
	}

	past := body.PastContests
	if len(past) > s.maxPast {
		past = past[:s.maxPast]
	}

	contests := make([]models.Contest, 0, len(body.FutureContests)+len(past))
	for _, c := range append(body.FutureContests, past...) {
		contest, err := s.normalize(c)
		if err != nil {
			s.log.Warn().Err(err).Str("contest", c.Name).Msg("Skipping contest with unparseable dates")
			continue
		}
		contests = append(contests, contest)
	}

	s.log.Info().Int("count", len(contests)).Msg("Fetched CodeChef contests")

	return contests, nil
}

func (s *Source) normalize(c apiContest) (models.Contest, error) {
	start, err := parseDate(c.StartDateISO, c.StartDate)
	if err != nil {
		return models.Contest{}, fmt.Errorf("start date: %w", err)
	}
	end, err := parseDate(c.EndDateISO, c.EndDate)
	if err != nil {
		return models.Contest{}, fmt.Errorf("end date: %w", err)
	}

	durationSeconds := end.Unix() - start.Unix()

	return models.Contest{
		Platform:        models.PlatformCodeChef,
		Name:            c.Name,
		StartTimeUnix:   start.Unix(),
		StartTime:       start.UTC().Format(time.RFC3339),
		EndTime:         end.UTC().Format(time.RFC3339),
		DurationSeconds: durationSeconds,
		Duration:        models.FormatDuration(durationSeconds),
		URL:             fmt.Sprintf("https://www.codechef.com/%s", c.Code),
	}, nil
}

// parseDate prefers the ISO field and falls back to CodeChef's legacy format.
// CodeChef timestamps are IST; the legacy strings carry no zone marker.
func parseDate(iso, legacy string) (time.Time, error) {
	if iso != "" {
		if t, err := time.Parse(time.RFC3339, iso); err == nil {
			return t, nil
		}
	}
	if legacy != "" {
		if t, err := time.Parse(legacyDateLayout, legacy); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q / %q", iso, legacy)
}

// Ensure Source implements source.ContestSource
var _ source.ContestSource = (*Source)(nil)
