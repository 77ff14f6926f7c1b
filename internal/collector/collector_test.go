package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/classify"
	"github.com/trendlens/collector/internal/storage/memory"
	"github.com/trendlens/collector/internal/trending"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubCategories struct {
	byRegion map[string][]string
}

func (s stubCategories) CategoriesFor(_ context.Context, region string) []string {
	return s.byRegion[region]
}

type fakeSource struct {
	videos map[string][]trending.RawVideo
	errs   map[string]error
	calls  []string
}

func pairKey(region, category string) string {
	return fmt.Sprintf("%s/%s", region, category)
}

func (s *fakeSource) ListMostPopular(_ context.Context, region, categoryID string, _ int64) ([]trending.RawVideo, error) {
	key := pairKey(region, categoryID)
	s.calls = append(s.calls, key)
	if err := s.errs[key]; err != nil {
		return nil, err
	}
	return s.videos[key], nil
}

func (s *fakeSource) ListCategories(context.Context, string) ([]trending.Category, error) {
	return nil, errors.New("not used")
}

type failingFeedLog struct {
	trending.FeedLog
	err error
}

func (f failingFeedLog) AppendFeedHit(context.Context, trending.FeedHit) (bool, error) {
	return false, f.err
}

func int64Ptr(v int64) *int64 { return &v }

func rawVideo(id string, now time.Time) trending.RawVideo {
	return trending.RawVideo{
		ID:           id,
		Title:        "title " + id,
		ChannelID:    "chan-" + id,
		ChannelTitle: "channel " + id,
		PublishedAt:  now.Add(-5 * time.Hour).Format(time.RFC3339),
		Duration:     "PT4M2S",
		ViewCount:    int64Ptr(90000),
	}
}

var testClassifierConfig = classify.Config{
	Short: classify.Thresholds{Viral: 100000, Stable: 25000},
	Long:  classify.Thresholds{Viral: 50000, Stable: 10000},
}

func newTestCollector(
	source trending.VideoSource,
	cats trending.CategoryProvider,
	videos trending.VideoStore,
	feed trending.FeedLog,
	clock trending.Clock,
	regions []string,
) *Collector {
	return New(
		source,
		cats,
		classify.New(testClassifierConfig, clock),
		videos,
		feed,
		NewPacer(0),
		nil,
		clock,
		zap.NewNop(),
		Config{Regions: regions, PageSize: 50, FetchTimeout: time.Second},
	)
}

func TestRunCollectsAcrossRegionsAndCategories(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	source := &fakeSource{videos: map[string][]trending.RawVideo{
		pairKey("US", ""):   {rawVideo("a", now), rawVideo("b", now)},
		pairKey("US", "10"): {rawVideo("c", now)},
		pairKey("GB", ""):   {rawVideo("d", now)},
	}}
	cats := stubCategories{byRegion: map[string][]string{"US": {"10"}}}
	store := memory.NewVideoStore()

	c := newTestCollector(source, cats, store, store, clock, []string{"US", "GB"})
	stats, err := c.Run(context.Background(), "run-1")
	require.NoError(t, err)

	require.Equal(t, int64(4), stats.VideosProcessed)
	require.Equal(t, int64(4), stats.FeedHitsCreated)
	// Sentinel pull comes before the category pulls of each region.
	require.Equal(t, []string{
		pairKey("US", ""), pairKey("US", "10"), pairKey("GB", ""),
	}, source.calls)

	v, err := store.GetVideo(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, int64(90000), v.ViewCount)
	require.Equal(t, now, v.FirstSeenAt)
}

func TestRunSuppressesDuplicateFeedHits(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	// The same video trends both overall and inside category 10: the
	// category pull's append is a duplicate only if region and category
	// match, so here both inserts land but a re-pull of the same pair
	// within the run is suppressed.
	shared := rawVideo("dup", now)
	source := &fakeSource{videos: map[string][]trending.RawVideo{
		pairKey("US", ""): {shared, shared},
	}}
	cats := stubCategories{}
	store := memory.NewVideoStore()

	c := newTestCollector(source, cats, store, store, clock, []string{"US"})
	stats, err := c.Run(context.Background(), "run-1")
	require.NoError(t, err)

	// Both copies upserted, but only one feed hit row exists.
	require.Equal(t, int64(2), stats.VideosProcessed)
	require.Equal(t, int64(1), stats.FeedHitsCreated)
	require.Len(t, store.Hits(), 1)
}

func TestRunRecordsDistinctHitsPerCategory(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	shared := rawVideo("x", now)
	source := &fakeSource{videos: map[string][]trending.RawVideo{
		pairKey("US", ""):   {shared},
		pairKey("US", "10"): {shared},
	}}
	cats := stubCategories{byRegion: map[string][]string{"US": {"10"}}}
	store := memory.NewVideoStore()

	c := newTestCollector(source, cats, store, store, clock, []string{"US"})
	stats, err := c.Run(context.Background(), "run-1")
	require.NoError(t, err)

	// The sentinel pull stores category "all"; the category pull stores
	// "10". Different keys, so both hits persist.
	require.Equal(t, int64(2), stats.FeedHitsCreated)
	hits := store.Hits()
	require.Len(t, hits, 2)
	require.Equal(t, trending.CategoryAll, hits[0].CategoryID)
	require.Equal(t, "10", hits[1].CategoryID)
}

func TestRunIsolatesSingleCategoryFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	source := &fakeSource{
		videos: map[string][]trending.RawVideo{
			pairKey("US", ""):   {rawVideo("a", now)},
			pairKey("US", "20"): {rawVideo("b", now)},
		},
		errs: map[string]error{
			pairKey("US", "10"): errors.New("quota exceeded"),
		},
	}
	cats := stubCategories{byRegion: map[string][]string{"US": {"10", "20"}}}
	store := memory.NewVideoStore()

	c := newTestCollector(source, cats, store, store, clock, []string{"US"})
	stats, err := c.Run(context.Background(), "run-1")
	require.NoError(t, err)

	// The bad category is skipped; the other pulls still produce hits.
	require.Equal(t, int64(2), stats.VideosProcessed)
	require.Equal(t, int64(2), stats.FeedHitsCreated)
	require.Len(t, source.calls, 3)
}

func TestRunSkipsUnclassifiableVideos(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	broken := rawVideo("broken", now)
	broken.ViewCount = nil
	source := &fakeSource{videos: map[string][]trending.RawVideo{
		pairKey("US", ""): {broken, rawVideo("ok", now)},
	}}
	store := memory.NewVideoStore()

	c := newTestCollector(source, stubCategories{}, store, store, clock, []string{"US"})
	stats, err := c.Run(context.Background(), "run-1")
	require.NoError(t, err)

	require.Equal(t, int64(1), stats.VideosProcessed)
	require.Equal(t, int64(1), stats.FeedHitsCreated)
}

func TestRunPersistenceErrorIsFatal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	source := &fakeSource{videos: map[string][]trending.RawVideo{
		pairKey("US", ""): {rawVideo("a", now)},
		pairKey("GB", ""): {rawVideo("b", now)},
	}}
	store := memory.NewVideoStore()
	feed := failingFeedLog{err: errors.New("connection refused")}

	c := newTestCollector(source, stubCategories{}, store, feed, clock, []string{"US", "GB"})
	_, err := c.Run(context.Background(), "run-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")

	// The run aborted before reaching the second region.
	require.Equal(t, []string{pairKey("US", "")}, source.calls)
}

func TestRunCanceledContextIsFatal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	source := &fakeSource{}
	store := memory.NewVideoStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(
		source,
		stubCategories{},
		classify.New(testClassifierConfig, clock),
		store,
		store,
		NewPacer(50*time.Millisecond),
		nil,
		clock,
		zap.NewNop(),
		Config{Regions: []string{"US"}, FetchTimeout: time.Second},
	)
	_, err := c.Run(ctx, "run-1")
	require.Error(t, err)
}
