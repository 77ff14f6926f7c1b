// Package trending defines core types shared across subsystems.
package trending

import "time"

// RunStatus represents the lifecycle state of a collector run.
type RunStatus string

// Run status values persisted in the run store. A run transitions from
// running to exactly one of ok or error and never back.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusOK      RunStatus = "ok"
	RunStatusError   RunStatus = "error"
)

// Bucket is the coarse performance tier derived from views per hour.
type Bucket string

// Bucket values stored on feed hits.
const (
	BucketViral  Bucket = "viral"
	BucketStable Bucket = "stable"
	BucketLow    Bucket = "low"
)

// CategoryAll is the sentinel category stored for the unfiltered
// "overall trending" pull of a region.
const CategoryAll = "all"

// Thumbnails holds the candidate thumbnail URLs of a raw video, by
// resolution. Absent resolutions are empty strings.
type Thumbnails struct {
	Maxres  string `json:"maxres,omitempty"`
	High    string `json:"high,omitempty"`
	Medium  string `json:"medium,omitempty"`
	Default string `json:"default,omitempty"`
}

// RawVideo is one item as returned by the video source, before
// classification. Counter pointers are nil when the source omitted the
// statistic; PublishedAt is the source's RFC 3339 string, parsed during
// classification so a malformed value skips the video instead of failing
// the run.
type RawVideo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ChannelID    string     `json:"channel_id"`
	ChannelTitle string     `json:"channel_title"`
	PublishedAt  string     `json:"published_at"`
	Duration     string     `json:"duration"`
	ViewCount    *int64     `json:"view_count,omitempty"`
	LikeCount    *int64     `json:"like_count,omitempty"`
	CommentCount *int64     `json:"comment_count,omitempty"`
	Thumbnails   Thumbnails `json:"thumbnails"`
}

// Category is one source-defined video category of a region.
type Category struct {
	ID         string
	Assignable bool
}

// ClassifiedVideo is the immutable output of classification: the raw
// identity/descriptive fields plus everything derived from them.
type ClassifiedVideo struct {
	VideoID         string
	Title           string
	ChannelID       string
	ChannelTitle    string
	PublishedAt     time.Time
	DurationSeconds int
	IsShort         bool
	ThumbnailURL    string
	ViewCount       int64
	LikeCount       *int64
	CommentCount    *int64
	ViewsPerHour    float64
	Bucket          Bucket
	NicheTags       []string
}

// Video is the deduplicated entity record, one row per source video ID.
// Counters reflect the most recent observation; FirstSeenAt never changes
// after creation.
type Video struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	ChannelID       string    `json:"channel_id"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	DurationSeconds int       `json:"duration_seconds"`
	IsShort         bool      `json:"is_short"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       *int64    `json:"like_count,omitempty"`
	CommentCount    *int64    `json:"comment_count,omitempty"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

// FeedHit is the append-only observation fact: one video seen in one
// region/category pull during one run, with point-in-time metrics.
// Unique on (run, video, region, category).
type FeedHit struct {
	RunID        string    `json:"run_id"`
	VideoID      string    `json:"video_id"`
	RegionCode   string    `json:"region_code"`
	CategoryID   string    `json:"category_id"`
	ViewsPerHour float64   `json:"views_per_hour"`
	Bucket       Bucket    `json:"bucket"`
	NicheTags    []string  `json:"niche_tags"`
	SeenAt       time.Time `json:"seen_at"`
}

// RunStats aggregates what a run produced. Duplicate feed hits do not
// count toward FeedHitsCreated.
type RunStats struct {
	VideosProcessed int64 `json:"videos_processed"`
	FeedHitsCreated int64 `json:"feed_hits_created"`
}

// CollectorRun is the persisted lifecycle record of one collection run.
type CollectorRun struct {
	RunID        string     `json:"run_id"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Stats        RunStats   `json:"stats"`
}

// TrendingFilters narrows the read-side trending query.
type TrendingFilters struct {
	Region     string
	Niche      string
	Bucket     string
	Category   string
	IsShort    *bool
	HoursAgo   int
	Limit      int
	Offset     int
}

// TrendingRow is one entry of the trending report: the best observation
// of a video within the window, joined with its entity record.
type TrendingRow struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	PublishedAt  time.Time `json:"published_at"`
	IsShort      bool      `json:"is_short"`
	ViewCount    int64     `json:"view_count"`
	ViewsPerHour float64   `json:"views_per_hour"`
	Bucket       Bucket    `json:"bucket"`
	NicheTags    []string  `json:"niche_tags"`
	RegionCode   string    `json:"region_code"`
	CategoryID   string    `json:"category_id"`
	SeenAt       time.Time `json:"seen_at"`
}

// WindowStats summarizes feed hits inside one time window.
type WindowStats struct {
	TotalHits    int64            `json:"total_hits"`
	UniqueVideos int64            `json:"unique_videos"`
	ByBucket     map[Bucket]int64 `json:"by_bucket"`
	Shorts       int64            `json:"shorts,omitempty"`
	LongForm     int64            `json:"long_form,omitempty"`
}

// OverviewStats is the dashboard summary returned by the stats endpoint.
type OverviewStats struct {
	Last24h WindowStats   `json:"last_24h"`
	Last7d  WindowStats   `json:"last_7d"`
	LastRun *CollectorRun `json:"last_run,omitempty"`
}

// RunEvent is published after a run is finalized.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Status     RunStatus `json:"status"`
	Stats      RunStats  `json:"stats"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
