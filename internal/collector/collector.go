// Package collector drives a full collection run: the cross-product
// iteration over regions and categories, classification, and persistence.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/classify"
	"github.com/trendlens/collector/internal/telemetry"
	"github.com/trendlens/collector/internal/trending"
)

// DefaultPageSize is how many candidate videos are requested per
// (region, category) pull.
const DefaultPageSize = 50

// Config controls Collector behavior.
type Config struct {
	Regions      []string
	PageSize     int64
	FetchTimeout time.Duration
}

// Collector owns one region/category loop over the video source.
type Collector struct {
	source     trending.VideoSource
	categories trending.CategoryProvider
	classifier *classify.Classifier
	videos     trending.VideoStore
	feed       trending.FeedLog
	pacer      *Pacer
	archive    trending.BlobStore
	clock      trending.Clock
	logger     *zap.Logger
	cfg        Config
}

// New constructs a Collector. The archive store is optional; when nil,
// raw payload snapshots are skipped.
func New(
	source trending.VideoSource,
	categories trending.CategoryProvider,
	classifier *classify.Classifier,
	videos trending.VideoStore,
	feed trending.FeedLog,
	pacer *Pacer,
	archive trending.BlobStore,
	clock trending.Clock,
	logger *zap.Logger,
	cfg Config,
) *Collector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Collector{
		source:     source,
		categories: categories,
		classifier: classifier,
		videos:     videos,
		feed:       feed,
		pacer:      pacer,
		archive:    archive,
		clock:      clock,
		logger:     logger,
		cfg:        cfg,
	}
}

// pairResult is the tagged outcome of one (region, category) iteration.
// A non-fatal error isolates to the pair; a fatal one aborts the run.
type pairResult struct {
	videos int64
	hits   int64
	err    error
	fatal  bool
}

// Run executes the collection loop for every configured region and
// returns aggregate stats. A failed fetch for one pair is logged and the
// loop continues; persistence errors other than duplicate feed hits
// abort the run.
func (c *Collector) Run(ctx context.Context, runID string) (trending.RunStats, error) {
	stats := trending.RunStats{}

	for _, region := range c.cfg.Regions {
		c.logger.Info("processing region", zap.String("run_id", runID), zap.String("region", region))

		// Sentinel "" first: the overall trending pull without a
		// category filter.
		pairs := append([]string{""}, c.categories.CategoriesFor(ctx, region)...)

		for _, categoryID := range pairs {
			res := c.collectPair(ctx, runID, region, categoryID)
			stats.VideosProcessed += res.videos
			stats.FeedHitsCreated += res.hits
			if res.err == nil {
				continue
			}
			if res.fatal {
				return stats, fmt.Errorf("%s/%s: %w", region, storedCategory(categoryID), res.err)
			}
			c.logger.Warn("category pull failed, continuing",
				zap.String("run_id", runID),
				zap.String("region", region),
				zap.String("category", storedCategory(categoryID)),
				zap.Error(res.err),
			)
		}
	}

	return stats, nil
}

func (c *Collector) collectPair(ctx context.Context, runID, region, categoryID string) pairResult {
	if err := c.pacer.Wait(ctx); err != nil {
		return pairResult{err: err, fatal: true}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	raws, err := c.source.ListMostPopular(fetchCtx, region, categoryID, c.cfg.PageSize)
	telemetry.ObserveSourceFetch("videos", err, time.Since(start))
	if err != nil {
		return pairResult{err: fmt.Errorf("list most popular: %w", err)}
	}

	c.logger.Debug("retrieved videos",
		zap.String("region", region),
		zap.String("category", storedCategory(categoryID)),
		zap.Int("count", len(raws)),
	)
	c.snapshotRaw(ctx, runID, region, categoryID, raws)

	res := pairResult{}
	for _, raw := range raws {
		classified, ok := c.classifier.Classify(raw)
		if !ok {
			// Validation skip: not an error, counted nowhere.
			continue
		}
		now := c.clock.Now()

		if err := c.videos.UpsertVideo(ctx, videoFromClassified(classified, now)); err != nil {
			res.err = fmt.Errorf("upsert video %s: %w", classified.VideoID, err)
			res.fatal = true
			return res
		}
		res.videos++

		inserted, err := c.feed.AppendFeedHit(ctx, trending.FeedHit{
			RunID:        runID,
			VideoID:      classified.VideoID,
			RegionCode:   region,
			CategoryID:   storedCategory(categoryID),
			ViewsPerHour: classified.ViewsPerHour,
			Bucket:       classified.Bucket,
			NicheTags:    classified.NicheTags,
			SeenAt:       now,
		})
		if err != nil {
			res.err = fmt.Errorf("append feed hit %s: %w", classified.VideoID, err)
			res.fatal = true
			return res
		}
		if inserted {
			res.hits++
			telemetry.ObserveFeedHit("created")
		} else {
			// Same video seen under another category of this run.
			telemetry.ObserveFeedHit("duplicate")
		}
	}

	telemetry.AddVideosProcessed(res.videos)
	return res
}

// snapshotRaw archives the raw source payload for the pair, best-effort.
func (c *Collector) snapshotRaw(ctx context.Context, runID, region, categoryID string, raws []trending.RawVideo) {
	if c.archive == nil || len(raws) == 0 {
		return
	}
	data, err := json.Marshal(raws)
	if err != nil {
		c.logger.Warn("marshal raw snapshot failed", zap.Error(err))
		return
	}
	path := fmt.Sprintf("runs/%s/%s/%s.json", runID, region, storedCategory(categoryID))
	if _, err := c.archive.PutObject(ctx, path, "application/json", data); err != nil {
		c.logger.Warn("store raw snapshot failed", zap.String("path", path), zap.Error(err))
	}
}

func videoFromClassified(v *trending.ClassifiedVideo, seenAt time.Time) trending.Video {
	return trending.Video{
		VideoID:         v.VideoID,
		Title:           v.Title,
		ChannelID:       v.ChannelID,
		ChannelTitle:    v.ChannelTitle,
		PublishedAt:     v.PublishedAt,
		DurationSeconds: v.DurationSeconds,
		IsShort:         v.IsShort,
		ThumbnailURL:    v.ThumbnailURL,
		ViewCount:       v.ViewCount,
		LikeCount:       v.LikeCount,
		CommentCount:    v.CommentCount,
		FirstSeenAt:     seenAt,
		LastSeenAt:      seenAt,
	}
}

func storedCategory(categoryID string) string {
	if categoryID == "" {
		return trending.CategoryAll
	}
	return categoryID
}
