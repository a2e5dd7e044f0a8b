package solution

import (
	"context"
	"fmt"
	"html"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/Prabhat2912/contest-tracker/pkg/logger"
	"github.com/Prabhat2912/contest-tracker/pkg/ratelimit"
)

// YouTubeClient implements SearchClient against the YouTube Data API v3
type YouTubeClient struct {
	service *youtube.Service
	limiter RateLimiter
	log     *logger.Logger
}

// RateLimiter is the subset of pkg/ratelimit used here
type RateLimiter interface {
	Wait(ctx context.Context, name string) error
}

// NewYouTubeClient creates a YouTube search client authenticated by API key
func NewYouTubeClient(ctx context.Context, apiKey string, limiter RateLimiter, log *logger.Logger) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube API key is required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubeClient{
		service: service,
		limiter: limiter,
		log:     log.WithComponent("youtube"),
	}, nil
}

// Search runs a video search and returns the ranked candidates
func (c *YouTubeClient) Search(ctx context.Context, query string, maxResults int64) ([]Video, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
			return nil, err
		}
	}

	c.log.Debug().Str("query", query).Msg("Searching YouTube")

	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, Video{
			ID: item.Id.VideoId,
			// The API HTML-escapes titles ("C++ &amp; More")
			Title:   html.UnescapeString(item.Snippet.Title),
			Channel: item.Snippet.ChannelTitle,
		})
	}

	c.log.Debug().Int("results", len(videos)).Str("query", query).Msg("YouTube search completed")

	return videos, nil
}

// Ensure YouTubeClient implements SearchClient
var _ SearchClient = (*YouTubeClient)(nil)
