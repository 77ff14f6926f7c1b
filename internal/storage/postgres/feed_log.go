package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendlens/collector/internal/trending"
)

// FeedLog appends observation rows to the feed_hits table.
type FeedLog struct {
	pool pgxPool
}

// NewFeedLog constructs a FeedLog on an existing pool.
func NewFeedLog(pool *pgxpool.Pool) *FeedLog {
	return &FeedLog{pool: pool}
}

// NewFeedLogWithPool constructs a FeedLog from any pool implementation
// (primarily for testing).
func NewFeedLogWithPool(pool pgxPool) (*FeedLog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &FeedLog{pool: pool}, nil
}

// AppendFeedHit inserts the hit. A collision on the primary key
// (run, video, region, category) reports inserted=false with a nil
// error; anything else is a real failure.
func (l *FeedLog) AppendFeedHit(ctx context.Context, hit trending.FeedHit) (bool, error) {
	query := `
INSERT INTO feed_hits (
	run_id,
	video_id,
	region_code,
	category_id,
	views_per_hour,
	bucket,
	niche_tags,
	seen_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`

	_, err := l.pool.Exec(ctx, query,
		hit.RunID,
		hit.VideoID,
		hit.RegionCode,
		hit.CategoryID,
		hit.ViewsPerHour,
		hit.Bucket,
		hit.NicheTags,
		hit.SeenAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("append feed hit: %w", err)
	}
	return true, nil
}
