package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"
)

func TestRawFromAPIFullItem(t *testing.T) {
	item := &youtube.Video{
		Id: "vid-1",
		Snippet: &youtube.VideoSnippet{
			Title:        "Launch Day",
			ChannelId:    "chan-1",
			ChannelTitle: "Space Channel",
			PublishedAt:  "2026-08-01T12:00:00Z",
			Thumbnails: &youtube.ThumbnailDetails{
				Maxres:  &youtube.Thumbnail{Url: "https://img/maxres.jpg"},
				High:    &youtube.Thumbnail{Url: "https://img/high.jpg"},
				Default: &youtube.Thumbnail{Url: "https://img/default.jpg"},
			},
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: "PT10M30S"},
		Statistics: &youtube.VideoStatistics{
			ViewCount:    120000,
			LikeCount:    4500,
			CommentCount: 321,
		},
	}

	raw := rawFromAPI(item)

	assert.Equal(t, "vid-1", raw.ID)
	assert.Equal(t, "Launch Day", raw.Title)
	assert.Equal(t, "chan-1", raw.ChannelID)
	assert.Equal(t, "Space Channel", raw.ChannelTitle)
	assert.Equal(t, "2026-08-01T12:00:00Z", raw.PublishedAt)
	assert.Equal(t, "PT10M30S", raw.Duration)
	require.NotNil(t, raw.ViewCount)
	assert.Equal(t, int64(120000), *raw.ViewCount)
	require.NotNil(t, raw.LikeCount)
	assert.Equal(t, int64(4500), *raw.LikeCount)
	require.NotNil(t, raw.CommentCount)
	assert.Equal(t, int64(321), *raw.CommentCount)
	assert.Equal(t, "https://img/maxres.jpg", raw.Thumbnails.Maxres)
	assert.Equal(t, "https://img/high.jpg", raw.Thumbnails.High)
	assert.Equal(t, "", raw.Thumbnails.Medium)
	assert.Equal(t, "https://img/default.jpg", raw.Thumbnails.Default)
}

func TestRawFromAPIMissingParts(t *testing.T) {
	// The API omits parts that were not requested or are hidden by the
	// channel. Counters must stay nil, not become zero.
	raw := rawFromAPI(&youtube.Video{Id: "vid-2"})

	assert.Equal(t, "vid-2", raw.ID)
	assert.Empty(t, raw.Title)
	assert.Empty(t, raw.Duration)
	assert.Nil(t, raw.ViewCount)
	assert.Nil(t, raw.LikeCount)
	assert.Nil(t, raw.CommentCount)
	assert.Equal(t, "", raw.Thumbnails.Maxres)
}

func TestRawFromAPIHiddenLikeCount(t *testing.T) {
	item := &youtube.Video{
		Id:         "vid-3",
		Statistics: &youtube.VideoStatistics{ViewCount: 50},
	}

	raw := rawFromAPI(item)

	require.NotNil(t, raw.ViewCount)
	assert.Equal(t, int64(50), *raw.ViewCount)
	require.NotNil(t, raw.LikeCount)
	assert.Equal(t, int64(0), *raw.LikeCount)
}

func TestThumbnailsFromAPINil(t *testing.T) {
	out := thumbnailsFromAPI(nil)
	assert.Empty(t, out.Maxres)
	assert.Empty(t, out.High)
	assert.Empty(t, out.Medium)
	assert.Empty(t, out.Default)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(t.Context(), "", 0)
	require.Error(t, err)
}
