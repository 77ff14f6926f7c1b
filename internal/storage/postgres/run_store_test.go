package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/trendlens/collector/internal/trending"
)

func TestCreateRunInsertsRunningRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO collector_runs").
		WithArgs("run-1", trending.RunStatusRunning, started, int64(0), int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.CreateRun(context.Background(), trending.CollectorRun{
		RunID:     "run-1",
		Status:    trending.RunStatusRunning,
		StartedAt: started,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRunDuplicateID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO collector_runs").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = store.CreateRun(context.Background(), trending.CollectorRun{RunID: "run-1"})
	require.True(t, errors.Is(err, trending.ErrAlreadyExists))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunUpdatesRunningRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	finished := time.Unix(1700003600, 0).UTC()
	stats := trending.RunStats{VideosProcessed: 42, FeedHitsCreated: 40}

	mock.ExpectExec("UPDATE collector_runs").
		WithArgs(trending.RunStatusOK, finished, stats.VideosProcessed, stats.FeedHitsCreated, "", "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.FinishRun(context.Background(), "run-1", trending.RunStatusOK, finished, stats, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunAlreadyTerminal(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	// The guard on status = 'running' makes a second finish a no-op.
	mock.ExpectExec("UPDATE collector_runs").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.FinishRun(
		context.Background(),
		"run-1",
		trending.RunStatusError,
		time.Now(),
		trending.RunStats{},
		"boom",
	)
	require.True(t, errors.Is(err, trending.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Minute)
	errMsg := "US/all: connection refused"

	mock.ExpectQuery("FROM collector_runs").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"run_id", "status", "started_at", "finished_at",
			"error_message", "videos_processed", "feed_hits_created",
		}).AddRow(
			"run-1", trending.RunStatusError, started, &finished,
			&errMsg, int64(10), int64(8),
		))

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, trending.RunStatusError, run.Status)
	require.NotNil(t, run.FinishedAt)
	require.Equal(t, finished, *run.FinishedAt)
	require.Equal(t, "US/all: connection refused", run.ErrorMessage)
	require.Equal(t, int64(10), run.Stats.VideosProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRunEmptyTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("FROM collector_runs").
		WillReturnRows(pgxmock.NewRows([]string{
			"run_id", "status", "started_at", "finished_at",
			"error_message", "videos_processed", "feed_hits_created",
		}))

	_, err = store.LatestRun(context.Background())
	require.True(t, errors.Is(err, trending.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
