package leetcode

import (
	"bytes"
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

const defaultURL = "https://leetcode.com/graphql"

const contestListQuery = `query getContestList { allContests { title startTime duration titleSlug } }`

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data struct {
		AllContests []apiContest `json:"allContests"`
	} `json:"data"`
}

type apiContest struct {
	Title     string `json:"title"`
	StartTime int64  `json:"startTime"`
	Duration  int64  `json:"duration"`
	TitleSlug string `json:"titleSlug"`
}

// Source implements source.ContestSource for the LeetCode GraphQL API
type Source struct {
	url        string
	maxResults int
	client     *http.Client
	limiter    *ratelimit.MultiLimiter
	log        *logger.Logger
}

// New creates a new LeetCode source
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
		log:        log.WithSource("leetcode"),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "leetcode"
}

// Fetch retrieves the LeetCode contest list via GraphQL
func (s *Source) Fetch(ctx context.Context) ([]models.Contest, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterLeetCode); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(graphqlRequest{Query: contestListQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leetcode API returned status %d", resp.StatusCode)
	}

	var body graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	raw := body.Data.AllContests
	if len(raw) > s.maxResults {
		raw = raw[:s.maxResults]
	}

	contests := make([]models.Contest, 0, len(raw))
	for _, c := range raw {
		contests = append(contests, models.Contest{
			Platform:        models.PlatformLeetCode,
			Name:            c.Title,
			StartTimeUnix:   c.StartTime,
			StartTime:       time.Unix(c.StartTime, 0).UTC().Format(time.RFC3339),
			DurationSeconds: c.Duration,
			Duration:        models.FormatDuration(c.Duration),
			URL:             fmt.Sprintf("https://leetcode.com/contest/%s", c.TitleSlug),
		})
	}

	s.log.Info().Int("count", len(contests)).Msg("Fetched LeetCode contests")

	return contests, nil
}

// Ensure Source implements source.ContestSource
var _ source.ContestSource = (*Source)(nil)
