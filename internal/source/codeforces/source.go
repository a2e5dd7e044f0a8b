package codeforces

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

const defaultURL = "https://codeforces.com/api/contest.list"

// apiResponse is the Codeforces contest.list envelope
type apiResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment"`
	Result  []apiContest `json:"result"`
}

type apiContest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
	DurationSeconds  int64  `json:"durationSeconds"`
}

// Source implements source.ContestSource for the Codeforces API
type Source struct {
	url        string
	maxResults int
	client     *http.Client
	limiter    *ratelimit.MultiLimiter
	log        *logger.Logger
}

// New creates a new Codeforces source
func New(cfg config.SourceConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	url := cfg.URL
	if url == "" {
		url = defaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	return &Source{
		url:        url,
		maxResults: maxResults,
		client:     &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        log.WithSource("codeforces"),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "codeforces"
}

// Fetch retrieves the Codeforces contest list
func (s *Source) Fetch(ctx context.Context) ([]models.Contest, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterCodeforces); err != nil {
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
		return nil, fmt.Errorf("codeforces API returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("codeforces API status %q: %s", body.Status, body.Comment)
	}

	raw := body.Result
	if len(raw) > s.maxResults {
		raw = raw[:s.maxResults]
	}

	contests := make([]models.Contest, 0, len(raw))
	for _, c := range raw {
		contests = append(contests, models.Contest{
			Platform:        models.PlatformCodeforces,
			Name:            c.Name,
			StartTimeUnix:   c.StartTimeSeconds,
			StartTime:       time.Unix(c.StartTimeSeconds, 0).UTC().Format(time.RFC3339),
			DurationSeconds: c.DurationSeconds,
			Duration:        models.FormatDuration(c.DurationSeconds),
			URL:             fmt.Sprintf("https://codeforces.com/contests/%d", c.ID),
		})
	}

	s.log.Info().Int("count", len(contests)).Msg("Fetched Codeforces contests")

	return contests, nil
}

// Ensure Source implements source.ContestSource
var _ source.ContestSource = (*Source)(nil)
