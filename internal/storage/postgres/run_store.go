package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendlens/collector/internal/trending"
)

// RunStore persists collector run lifecycle rows.
type RunStore struct {
	pool pgxPool
}

// NewRunStore constructs a RunStore on an existing pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// NewRunStoreWithPool constructs a store from any pool implementation
// (primarily for testing).
func NewRunStoreWithPool(pool pgxPool) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// CreateRun inserts a new run row in the running state.
func (s *RunStore) CreateRun(ctx context.Context, run trending.CollectorRun) error {
	query := `
INSERT INTO collector_runs (run_id, status, started_at, videos_processed, feed_hits_created)
VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.Status,
		run.StartedAt,
		run.Stats.VideosProcessed,
		run.Stats.FeedHitsCreated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return trending.ErrAlreadyExists
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun transitions the run to a terminal status. Only rows still in
// the running state are eligible, so finalization is one-shot.
func (s *RunStore) FinishRun(
	ctx context.Context,
	runID string,
	status trending.RunStatus,
	finishedAt time.Time,
	stats trending.RunStats,
	errMsg string,
) error {
	query := `
UPDATE collector_runs
SET status = $1,
	finished_at = $2,
	videos_processed = $3,
	feed_hits_created = $4,
	error_message = NULLIF($5, '')
WHERE run_id = $6 AND status = 'running'`

	tag, err := s.pool.Exec(ctx, query,
		status,
		finishedAt,
		stats.VideosProcessed,
		stats.FeedHitsCreated,
		errMsg,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trending.ErrNotFound
	}
	return nil
}

// GetRun fetches one run row by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (trending.CollectorRun, error) {
	query := `
SELECT run_id, status, started_at, finished_at, error_message, videos_processed, feed_hits_created
FROM collector_runs
WHERE run_id = $1`

	return s.scanRun(s.pool.QueryRow(ctx, query, runID), "get run")
}

// LatestRun returns the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (trending.CollectorRun, error) {
	query := `
SELECT run_id, status, started_at, finished_at, error_message, videos_processed, feed_hits_created
FROM collector_runs
ORDER BY started_at DESC
LIMIT 1`

	return s.scanRun(s.pool.QueryRow(ctx, query), "latest run")
}

func (s *RunStore) scanRun(row pgx.Row, op string) (trending.CollectorRun, error) {
	var (
		run    trending.CollectorRun
		errMsg *string
	)
	err := row.Scan(
		&run.RunID,
		&run.Status,
		&run.StartedAt,
		&run.FinishedAt,
		&errMsg,
		&run.Stats.VideosProcessed,
		&run.Stats.FeedHitsCreated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trending.CollectorRun{}, trending.ErrNotFound
		}
		return trending.CollectorRun{}, fmt.Errorf("%s: %w", op, err)
	}
	if errMsg != nil {
		run.ErrorMessage = *errMsg
	}
	return run, nil
}
