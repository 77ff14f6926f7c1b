// Package telemetry exposes Prometheus collectors for the collector service.
package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	collectorRunsTotal          *prometheus.CounterVec
	collectorVideosProcessed    prometheus.Counter
	collectorFeedHitsTotal      *prometheus.CounterVec
	collectorSourceFetchesTotal *prometheus.CounterVec
	collectorFetchDuration      *prometheus.HistogramVec
	collectorPaceDelaySeconds   prometheus.Histogram
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		collectorRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_runs_total",
				Help: "Total number of collection runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		collectorVideosProcessed = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_videos_processed_total",
				Help: "Total number of classified videos upserted.",
			},
		)

		collectorFeedHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_feed_hits_total",
				Help: "Total number of feed hit appends, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		collectorSourceFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_source_fetches_total",
				Help: "Total number of video source calls, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		collectorFetchDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_source_fetch_duration_seconds",
				Help:    "Histogram of video source call latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		collectorPaceDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "collector_pace_delay_seconds",
				Help:    "Histogram of waits imposed by the outbound pacing gate.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveRun records a finalized run by terminal status.
func ObserveRun(status string) {
	if collectorRunsTotal == nil {
		return
	}
	collectorRunsTotal.WithLabelValues(status).Inc()
}

// AddVideosProcessed adds to the processed-video counter.
func AddVideosProcessed(n int64) {
	if collectorVideosProcessed == nil {
		return
	}
	collectorVideosProcessed.Add(float64(n))
}

// ObserveFeedHit records one append outcome ("created" or "duplicate").
func ObserveFeedHit(outcome string) {
	if collectorFeedHitsTotal == nil {
		return
	}
	collectorFeedHitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSourceFetch records one source call with its latency.
func ObserveSourceFetch(kind string, err error, duration time.Duration) {
	if collectorSourceFetchesTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	collectorSourceFetchesTotal.WithLabelValues(kind, outcome).Inc()
	collectorFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObservePaceDelay records a wait imposed by the pacing gate.
func ObservePaceDelay(d time.Duration) {
	if collectorPaceDelaySeconds == nil {
		return
	}
	collectorPaceDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
