package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendlens/collector/internal/trending"
)

// ReportStore serves the read-only query surface over videos and hits.
type ReportStore struct {
	pool pgxPool
}

// NewReportStore constructs a ReportStore on an existing pool.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// NewReportStoreWithPool constructs a store from any pool implementation
// (primarily for testing).
func NewReportStoreWithPool(pool pgxPool) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ReportStore{pool: pool}, nil
}

// trendingFilter is the shared WHERE clause of the trending queries.
// Empty-string and nil parameters disable the respective filter.
const trendingFilter = `
	($1::text = '' OR h.region_code = $1)
	AND ($2::text = '' OR h.bucket = $2)
	AND ($3::text = '' OR h.category_id = $3)
	AND ($4::text = '' OR $4 = ANY(h.niche_tags))
	AND ($5::boolean IS NULL OR v.is_short = $5)
	AND ($6::int <= 0 OR h.seen_at >= now() - make_interval(hours => $6))`

// ListTrending keeps the best observation per video inside the window
// and pages through them ordered by views per hour descending. The
// returned total counts distinct matching videos, not pages.
func (s *ReportStore) ListTrending(ctx context.Context, f trending.TrendingFilters) ([]trending.TrendingRow, int64, error) {
	args := []any{f.Region, f.Bucket, f.Category, f.Niche, f.IsShort, f.HoursAgo}

	countQuery := `
SELECT COUNT(DISTINCT h.video_id)
FROM feed_hits h
JOIN videos v ON v.video_id = h.video_id
WHERE` + trendingFilter

	var total int64
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trending: %w", err)
	}

	pageQuery := `
WITH filtered AS (
	SELECT h.video_id, h.region_code, h.category_id, h.views_per_hour,
		h.bucket, h.niche_tags, h.seen_at,
		v.title, v.channel_title, v.thumbnail_url, v.published_at,
		v.is_short, v.view_count
	FROM feed_hits h
	JOIN videos v ON v.video_id = h.video_id
	WHERE` + trendingFilter + `
),
best AS (
	SELECT DISTINCT ON (video_id) *
	FROM filtered
	ORDER BY video_id, views_per_hour DESC
)
SELECT video_id, title, channel_title, thumbnail_url, published_at, is_short,
	view_count, views_per_hour, bucket, niche_tags, region_code, category_id, seen_at
FROM best
ORDER BY views_per_hour DESC
LIMIT NULLIF($7::int, 0) OFFSET $8`

	rows, err := s.pool.Query(ctx, pageQuery, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trending: %w", err)
	}
	defer rows.Close()

	var out []trending.TrendingRow
	for rows.Next() {
		var row trending.TrendingRow
		err := rows.Scan(
			&row.VideoID,
			&row.Title,
			&row.ChannelTitle,
			&row.ThumbnailURL,
			&row.PublishedAt,
			&row.IsShort,
			&row.ViewCount,
			&row.ViewsPerHour,
			&row.Bucket,
			&row.NicheTags,
			&row.RegionCode,
			&row.CategoryID,
			&row.SeenAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan trending row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read trending rows: %w", err)
	}
	return out, total, nil
}

// Overview summarizes feed hits over the 24-hour and 7-day windows.
func (s *ReportStore) Overview(ctx context.Context) (trending.OverviewStats, error) {
	last24h, err := s.windowStats(ctx, 24)
	if err != nil {
		return trending.OverviewStats{}, err
	}
	last7d, err := s.windowStats(ctx, 7*24)
	if err != nil {
		return trending.OverviewStats{}, err
	}
	return trending.OverviewStats{Last24h: last24h, Last7d: last7d}, nil
}

func (s *ReportStore) windowStats(ctx context.Context, hours int) (trending.WindowStats, error) {
	query := `
SELECT
	COUNT(*),
	COUNT(DISTINCT h.video_id),
	COUNT(*) FILTER (WHERE h.bucket = 'viral'),
	COUNT(*) FILTER (WHERE h.bucket = 'stable'),
	COUNT(*) FILTER (WHERE h.bucket = 'low'),
	COUNT(*) FILTER (WHERE v.is_short),
	COUNT(*) FILTER (WHERE NOT v.is_short)
FROM feed_hits h
JOIN videos v ON v.video_id = h.video_id
WHERE h.seen_at >= now() - make_interval(hours => $1)`

	var (
		stats  trending.WindowStats
		viral  int64
		stable int64
		low    int64
	)
	err := s.pool.QueryRow(ctx, query, hours).Scan(
		&stats.TotalHits,
		&stats.UniqueVideos,
		&viral,
		&stable,
		&low,
		&stats.Shorts,
		&stats.LongForm,
	)
	if err != nil {
		return trending.WindowStats{}, fmt.Errorf("window stats %dh: %w", hours, err)
	}
	stats.ByBucket = map[trending.Bucket]int64{
		trending.BucketViral:  viral,
		trending.BucketStable: stable,
		trending.BucketLow:    low,
	}
	return stats, nil
}

// ListVideoHits returns the most recent observations of one video.
func (s *ReportStore) ListVideoHits(ctx context.Context, videoID string, limit int) ([]trending.FeedHit, error) {
	query := `
SELECT run_id, video_id, region_code, category_id, views_per_hour, bucket, niche_tags, seen_at
FROM feed_hits
WHERE video_id = $1
ORDER BY seen_at DESC
LIMIT NULLIF($2::int, 0)`

	rows, err := s.pool.Query(ctx, query, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("list video hits: %w", err)
	}
	defer rows.Close()

	var hits []trending.FeedHit
	for rows.Next() {
		var hit trending.FeedHit
		err := rows.Scan(
			&hit.RunID,
			&hit.VideoID,
			&hit.RegionCode,
			&hit.CategoryID,
			&hit.ViewsPerHour,
			&hit.Bucket,
			&hit.NicheTags,
			&hit.SeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feed hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read feed hits: %w", err)
	}
	return hits, nil
}
