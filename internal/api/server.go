// Package api exposes the HTTP interface for the collector service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/config"
	"github.com/trendlens/collector/internal/middleware"
	"github.com/trendlens/collector/internal/runledger"
	"github.com/trendlens/collector/internal/trending"
)

const (
	defaultTrendingHours = 24
	defaultTrendingLimit = 50
	maxTrendingLimit     = 200
	videoHitsLimit       = 20
)

// RunTrigger executes one collection run end to end and reports how it
// ended.
type RunTrigger interface {
	TriggerRun(ctx context.Context) runledger.Result
}

// Server wires HTTP handlers to the trigger and stores.
type Server struct {
	router  chi.Router
	trigger RunTrigger
	runs    trending.RunStore
	videos  trending.VideoStore
	reports trending.ReportStore
	logger  *zap.Logger
	cfg     config.Config

	// runMu serializes collection runs; a held lock means 409 for the
	// next trigger instead of a queued run.
	runMu sync.Mutex
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	trigger RunTrigger,
	runs trending.RunStore,
	videos trending.VideoStore,
	reports trending.ReportStore,
	logger *zap.Logger,
	cfg config.Config,
) *Server {
	s := &Server{
		trigger: trigger,
		runs:    runs,
		videos:  videos,
		reports: reports,
		logger:  logger,
		cfg:     cfg,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// A full collection walks every region and category, so the
		// trigger route runs without the read timeout.
		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(bearerAuthMiddleware(cfg.Auth.Secret, s))
			}
			r.Post("/runs", s.triggerRun)
		})

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(30 * time.Second))
			r.Get("/runs/{run_id}", s.getRun)
			r.Get("/trending", s.listTrending)
			r.Get("/stats/overview", s.overview)
			r.Get("/videos/{video_id}", s.getVideo)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The stores answer reads as soon as they are constructed; a cheap
	// query doubles as the readiness probe.
	if _, err := s.runs.LatestRun(r.Context()); err != nil && !errors.Is(err, trending.ErrNotFound) {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	defer s.runMu.Unlock()

	res := s.trigger.TriggerRun(r.Context())
	if res.Err != nil {
		if res.RunID == "" {
			s.writeError(w, http.StatusInternalServerError, res.Err.Error())
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"run_id": res.RunID,
			"status": trending.RunStatusError,
			"error":  res.Err.Error(),
			"stats":  res.Stats,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": res.RunID,
		"status": trending.RunStatusOK,
		"stats":  res.Stats,
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, trending.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) listTrending(w http.ResponseWriter, r *http.Request) {
	filters, err := parseTrendingFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, total, err := s.reports.ListTrending(r.Context(), filters)
	if err != nil {
		s.logger.Error("list trending failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch trending videos")
		return
	}
	if rows == nil {
		rows = []trending.TrendingRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"items":  rows,
		"total":  total,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.Overview(r.Context())
	if err != nil {
		s.logger.Error("overview failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to compute overview")
		return
	}
	if run, err := s.runs.LatestRun(r.Context()); err == nil {
		stats.LastRun = &run
	} else if !errors.Is(err, trending.ErrNotFound) {
		s.logger.Warn("latest run lookup failed", zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")
	video, err := s.videos.GetVideo(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, trending.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "video not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}
	hits, err := s.reports.ListVideoHits(r.Context(), videoID, videoHitsLimit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch video history")
		return
	}
	if hits == nil {
		hits = []trending.FeedHit{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"video": video, "hits": hits})
}

func parseTrendingFilters(r *http.Request) (trending.TrendingFilters, error) {
	q := r.URL.Query()
	f := trending.TrendingFilters{
		Region:   q.Get("region"),
		Niche:    q.Get("niche"),
		Category: q.Get("category"),
		HoursAgo: defaultTrendingHours,
		Limit:    defaultTrendingLimit,
	}

	switch bucket := q.Get("bucket"); bucket {
	case "", string(trending.BucketViral), string(trending.BucketStable), string(trending.BucketLow):
		f.Bucket = bucket
	default:
		return f, fmt.Errorf("invalid bucket %q", bucket)
	}

	if raw := q.Get("is_short"); raw != "" {
		isShort, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid is_short %q", raw)
		}
		f.IsShort = &isShort
	}
	if raw := q.Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return f, fmt.Errorf("invalid hours %q", raw)
		}
		f.HoursAgo = hours
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return f, fmt.Errorf("invalid limit %q", raw)
		}
		if limit > maxTrendingLimit {
			limit = maxTrendingLimit
		}
		f.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("invalid offset %q", raw)
		}
		f.Offset = offset
	}
	return f, nil
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func bearerAuthMiddleware(secret string, s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token != secret {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
