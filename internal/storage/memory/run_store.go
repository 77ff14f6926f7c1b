package memory

import (
	"context"
	"sync"
	"time"

	"github.com/trendlens/collector/internal/trending"
)

// RunStore keeps collector run rows in process memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]trending.CollectorRun
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]trending.CollectorRun)}
}

// CreateRun stores a new run row.
func (s *RunStore) CreateRun(_ context.Context, run trending.CollectorRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.RunID]; exists {
		return ErrAlreadyExists
	}
	s.runs[run.RunID] = run
	return nil
}

// FinishRun transitions the run to a terminal status.
func (s *RunStore) FinishRun(
	_ context.Context,
	runID string,
	status trending.RunStatus,
	finishedAt time.Time,
	stats trending.RunStats,
	errMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	run.FinishedAt = &finishedAt
	run.Stats = stats
	run.ErrorMessage = errMsg
	s.runs[runID] = run
	return nil
}

// LatestRun returns the run with the most recent start time.
func (s *RunStore) LatestRun(_ context.Context) (trending.CollectorRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest trending.CollectorRun
	found := false
	for _, run := range s.runs {
		if !found || run.StartedAt.After(latest.StartedAt) {
			latest = run
			found = true
		}
	}
	if !found {
		return trending.CollectorRun{}, ErrNotFound
	}
	return latest, nil
}

// GetRun fetches a run row by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (trending.CollectorRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return trending.CollectorRun{}, ErrNotFound
	}
	return run, nil
}
