package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendlens/collector/internal/trending"
)

// VideoStore persists deduplicated video rows in the videos table.
type VideoStore struct {
	pool pgxPool
}

// NewVideoStore constructs a VideoStore on an existing pool.
func NewVideoStore(pool *pgxpool.Pool) *VideoStore {
	return &VideoStore{pool: pool}
}

// NewVideoStoreWithPool constructs a store from any pool implementation
// (primarily for testing).
func NewVideoStoreWithPool(pool pgxPool) (*VideoStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &VideoStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *VideoStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertVideo inserts the video or refreshes its mutable fields. The
// first-seen timestamp is written once and never updated.
func (s *VideoStore) UpsertVideo(ctx context.Context, v trending.Video) error {
	if v.VideoID == "" {
		return fmt.Errorf("video id is required")
	}
	query := `
INSERT INTO videos (
	video_id,
	title,
	channel_id,
	channel_title,
	published_at,
	duration_seconds,
	is_short,
	thumbnail_url,
	view_count,
	like_count,
	comment_count,
	first_seen_at,
	last_seen_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (video_id) DO UPDATE SET
	title = EXCLUDED.title,
	channel_title = EXCLUDED.channel_title,
	thumbnail_url = EXCLUDED.thumbnail_url,
	view_count = EXCLUDED.view_count,
	like_count = EXCLUDED.like_count,
	comment_count = EXCLUDED.comment_count,
	last_seen_at = EXCLUDED.last_seen_at`

	_, err := s.pool.Exec(ctx, query,
		v.VideoID,
		v.Title,
		v.ChannelID,
		v.ChannelTitle,
		v.PublishedAt,
		v.DurationSeconds,
		v.IsShort,
		v.ThumbnailURL,
		v.ViewCount,
		v.LikeCount,
		v.CommentCount,
		v.FirstSeenAt,
		v.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

// GetVideo fetches one video row by source ID.
func (s *VideoStore) GetVideo(ctx context.Context, videoID string) (trending.Video, error) {
	query := `
SELECT video_id, title, channel_id, channel_title, published_at,
	duration_seconds, is_short, thumbnail_url,
	view_count, like_count, comment_count,
	first_seen_at, last_seen_at
FROM videos
WHERE video_id = $1`

	var v trending.Video
	err := s.pool.QueryRow(ctx, query, videoID).Scan(
		&v.VideoID,
		&v.Title,
		&v.ChannelID,
		&v.ChannelTitle,
		&v.PublishedAt,
		&v.DurationSeconds,
		&v.IsShort,
		&v.ThumbnailURL,
		&v.ViewCount,
		&v.LikeCount,
		&v.CommentCount,
		&v.FirstSeenAt,
		&v.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trending.Video{}, trending.ErrNotFound
		}
		return trending.Video{}, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}
