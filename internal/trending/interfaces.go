package trending

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists signals a create whose key is already taken.
var ErrAlreadyExists = errors.New("already exists")

// VideoSource is the external ranking source. Both calls may fail
// transiently; callers must not assume success.
type VideoSource interface {
	// ListMostPopular returns up to maxResults top-ranked videos for the
	// region, optionally narrowed to one category. An empty categoryID
	// requests overall regional trending.
	ListMostPopular(ctx context.Context, region, categoryID string, maxResults int64) ([]RawVideo, error)
	// ListCategories returns the categories defined for the region,
	// including non-assignable ones.
	ListCategories(ctx context.Context, region string) ([]Category, error)
}

// CategoryProvider resolves the assignable category IDs for a region.
// Implementations must degrade gracefully: a resolution failure yields a
// stale or empty list, never an error.
type CategoryProvider interface {
	CategoriesFor(ctx context.Context, region string) []string
}

// VideoStore persists deduplicated video entities.
type VideoStore interface {
	// UpsertVideo creates the video if absent, else updates its counters
	// and last-seen timestamp. FirstSeenAt is only written on create.
	UpsertVideo(ctx context.Context, v Video) error
	GetVideo(ctx context.Context, videoID string) (Video, error)
}

// FeedLog appends observation facts.
type FeedLog interface {
	// AppendFeedHit records the hit. A collision on the
	// (run, video, region, category) key is an expected outcome reported
	// as inserted=false with a nil error; every other failure is an error.
	AppendFeedHit(ctx context.Context, hit FeedHit) (inserted bool, err error)
}

// RunStore persists collector run lifecycle rows.
type RunStore interface {
	CreateRun(ctx context.Context, run CollectorRun) error
	// FinishRun transitions the run to a terminal status exactly once.
	FinishRun(ctx context.Context, runID string, status RunStatus, finishedAt time.Time, stats RunStats, errMsg string) error
	GetRun(ctx context.Context, runID string) (CollectorRun, error)
	// LatestRun returns the most recently started run, or ErrNotFound
	// when no run has ever been recorded.
	LatestRun(ctx context.Context) (CollectorRun, error)
}

// ReportStore serves the read-only query surface over stored data.
type ReportStore interface {
	ListTrending(ctx context.Context, f TrendingFilters) ([]TrendingRow, int64, error)
	Overview(ctx context.Context) (OverviewStats, error)
	ListVideoHits(ctx context.Context, videoID string, limit int) ([]FeedHit, error)
}

// Publisher pushes run lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
