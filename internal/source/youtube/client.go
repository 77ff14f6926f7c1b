// Package youtube adapts the YouTube Data API v3 to the
// trending.VideoSource interface.
package youtube

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/trendlens/collector/internal/telemetry"
	"github.com/trendlens/collector/internal/trending"
)

var videoParts = []string{"snippet", "contentDetails", "statistics"}

// Client calls the YouTube Data API with an API key.
type Client struct {
	service *youtube.Service
	timeout time.Duration
}

// New constructs a Client. The timeout bounds each outbound call; zero
// falls back to 30 seconds.
func New(ctx context.Context, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{service: service, timeout: timeout}, nil
}

// ListMostPopular fetches the mostPopular chart for a region, optionally
// narrowed to one category.
func (c *Client) ListMostPopular(ctx context.Context, region, categoryID string, maxResults int64) ([]trending.RawVideo, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.Videos.List(videoParts).
		Chart("mostPopular").
		RegionCode(region).
		MaxResults(maxResults)
	if categoryID != "" {
		call = call.VideoCategoryId(categoryID)
	}

	resp, err := call.Context(callCtx).Do()
	if err != nil {
		return nil, fmt.Errorf("list most popular %s/%s: %w", region, categoryID, err)
	}

	raws := make([]trending.RawVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		raws = append(raws, rawFromAPI(item))
	}
	return raws, nil
}

// ListCategories fetches the video categories defined for a region.
func (c *Client) ListCategories(ctx context.Context, region string) ([]trending.Category, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.service.VideoCategories.List([]string{"snippet"}).
		RegionCode(region).
		Context(callCtx).Do()
	telemetry.ObserveSourceFetch("categories", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list categories %s: %w", region, err)
	}

	cats := make([]trending.Category, 0, len(resp.Items))
	for _, item := range resp.Items {
		cat := trending.Category{ID: item.Id}
		if item.Snippet != nil {
			cat.Assignable = item.Snippet.Assignable
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// rawFromAPI flattens an API video into the source-agnostic raw shape.
// Counters stay nil when the statistics part is withheld so that
// classification can tell "absent" from zero.
func rawFromAPI(item *youtube.Video) trending.RawVideo {
	raw := trending.RawVideo{ID: item.Id}
	if item.Snippet != nil {
		raw.Title = item.Snippet.Title
		raw.ChannelID = item.Snippet.ChannelId
		raw.ChannelTitle = item.Snippet.ChannelTitle
		raw.PublishedAt = item.Snippet.PublishedAt
		raw.Thumbnails = thumbnailsFromAPI(item.Snippet.Thumbnails)
	}
	if item.ContentDetails != nil {
		raw.Duration = item.ContentDetails.Duration
	}
	if item.Statistics != nil {
		raw.ViewCount = int64Ptr(item.Statistics.ViewCount)
		raw.LikeCount = int64Ptr(item.Statistics.LikeCount)
		raw.CommentCount = int64Ptr(item.Statistics.CommentCount)
	}
	return raw
}

func thumbnailsFromAPI(t *youtube.ThumbnailDetails) trending.Thumbnails {
	if t == nil {
		return trending.Thumbnails{}
	}
	out := trending.Thumbnails{}
	if t.Maxres != nil {
		out.Maxres = t.Maxres.Url
	}
	if t.High != nil {
		out.High = t.High.Url
	}
	if t.Medium != nil {
		out.Medium = t.Medium.Url
	}
	if t.Default != nil {
		out.Default = t.Default.Url
	}
	return out
}

func int64Ptr(v uint64) *int64 {
	//nolint:gosec // YouTube counters are far below int64 range.
	out := int64(v)
	return &out
}
