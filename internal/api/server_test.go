package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/config"
	"github.com/trendlens/collector/internal/runledger"
	memstore "github.com/trendlens/collector/internal/storage/memory"
	"github.com/trendlens/collector/internal/trending"
)

type stubTrigger struct {
	res     runledger.Result
	block   chan struct{}
	started chan struct{}
}

func (t *stubTrigger) TriggerRun(_ context.Context) runledger.Result {
	if t.started != nil {
		t.started <- struct{}{}
	}
	if t.block != nil {
		<-t.block
	}
	return t.res
}

type fixture struct {
	server  *Server
	runs    *memstore.RunStore
	videos  *memstore.VideoStore
	trigger *stubTrigger
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	runs := memstore.NewRunStore()
	videos := memstore.NewVideoStore()
	trigger := &stubTrigger{
		res: runledger.Result{
			RunID: "run-1",
			Stats: trending.RunStats{VideosProcessed: 10, FeedHitsCreated: 8},
		},
	}
	return &fixture{
		server:  NewServer(trigger, runs, videos, videos, zap.NewNop(), cfg),
		runs:    runs,
		videos:  videos,
		trigger: trigger,
	}
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTriggerRunReturnsStats(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodPost, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "ok", body["status"])
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(10), stats["videos_processed"])
	assert.Equal(t, float64(8), stats["feed_hits_created"])
}

func TestTriggerRunBusyReturnsConflict(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.trigger.block = make(chan struct{})
	f.trigger.started = make(chan struct{}, 1)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(t, http.MethodPost, "/v1/runs", nil)
	}()
	<-f.trigger.started

	rec := f.do(t, http.MethodPost, "/v1/runs", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(f.trigger.block)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestTriggerRunRequiresBearerToken(t *testing.T) {
	f := newFixture(t, config.Config{Auth: config.AuthConfig{Enabled: true, Secret: "hunter2"}})

	rec := f.do(t, http.MethodPost, "/v1/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/runs", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/runs", http.Header{"Authorization": {"Bearer hunter2"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerRunFailedRunStillReportsID(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.trigger.res = runledger.Result{
		RunID: "run-err",
		Stats: trending.RunStats{VideosProcessed: 3},
		Err:   context.DeadlineExceeded,
	}

	rec := f.do(t, http.MethodPost, "/v1/runs", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "run-err", body["run_id"])
	assert.Equal(t, "error", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestGetRun(t *testing.T) {
	f := newFixture(t, config.Config{})
	require.NoError(t, f.runs.CreateRun(context.Background(), trending.CollectorRun{
		RunID:     "run-1",
		Status:    trending.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}))

	rec := f.do(t, http.MethodGet, "/v1/runs/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	run, ok := body["run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "running", run["status"])

	rec = f.do(t, http.MethodGet, "/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedTrendingData(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.videos.UpsertVideo(ctx, trending.Video{
		VideoID:     "vid-long",
		Title:       "Launch Day",
		IsShort:     false,
		ViewCount:   120000,
		PublishedAt: now.Add(-3 * time.Hour),
		FirstSeenAt: now,
		LastSeenAt:  now,
	}))
	require.NoError(t, f.videos.UpsertVideo(ctx, trending.Video{
		VideoID:     "vid-short",
		Title:       "Quick Tip",
		IsShort:     true,
		ViewCount:   90000,
		PublishedAt: now.Add(-time.Hour),
		FirstSeenAt: now,
		LastSeenAt:  now,
	}))

	inserted, err := f.videos.AppendFeedHit(ctx, trending.FeedHit{
		RunID: "run-1", VideoID: "vid-long", RegionCode: "US", CategoryID: "all",
		ViewsPerHour: 40000, Bucket: trending.BucketStable, NicheTags: []string{"tech"},
		SeenAt: now,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = f.videos.AppendFeedHit(ctx, trending.FeedHit{
		RunID: "run-1", VideoID: "vid-short", RegionCode: "US", CategoryID: "all",
		ViewsPerHour: 110000, Bucket: trending.BucketViral,
		SeenAt: now,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestListTrending(t *testing.T) {
	f := newFixture(t, config.Config{})
	seedTrendingData(t, f)

	rec := f.do(t, http.MethodGet, "/v1/trending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total"])
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "vid-short", first["video_id"])

	rec = f.do(t, http.MethodGet, "/v1/trending?is_short=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])

	rec = f.do(t, http.MethodGet, "/v1/trending?bucket=viral", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
}

func TestListTrendingRejectsBadFilters(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodGet, "/v1/trending?bucket=mega", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/trending?hours=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/trending?is_short=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverviewIncludesLastRun(t *testing.T) {
	f := newFixture(t, config.Config{})
	seedTrendingData(t, f)
	finished := time.Now().UTC()
	require.NoError(t, f.runs.CreateRun(context.Background(), trending.CollectorRun{
		RunID:     "run-1",
		Status:    trending.RunStatusRunning,
		StartedAt: finished.Add(-time.Minute),
	}))
	require.NoError(t, f.runs.FinishRun(
		context.Background(), "run-1", trending.RunStatusOK, finished,
		trending.RunStats{VideosProcessed: 2, FeedHitsCreated: 2}, "",
	))

	rec := f.do(t, http.MethodGet, "/v1/stats/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	last24h, ok := body["last_24h"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), last24h["total_hits"])
	assert.Equal(t, float64(2), last24h["unique_videos"])

	lastRun, ok := body["last_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", lastRun["run_id"])
	assert.Equal(t, "ok", lastRun["status"])
}

func TestGetVideoWithHits(t *testing.T) {
	f := newFixture(t, config.Config{})
	seedTrendingData(t, f)

	rec := f.do(t, http.MethodGet, "/v1/videos/vid-long", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	video, ok := body["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Launch Day", video["title"])
	hits, ok := body["hits"].([]any)
	require.True(t, ok)
	require.Len(t, hits, 1)

	rec = f.do(t, http.MethodGet, "/v1/videos/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
