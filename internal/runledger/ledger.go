// Package runledger records run lifecycle: a run row is created before
// the collection loop starts and is finalized exactly once, whichever
// way the loop ends.
package runledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/telemetry"
	"github.com/trendlens/collector/internal/trending"
)

// Runner executes the collection loop for an already-created run.
type Runner interface {
	Run(ctx context.Context, runID string) (trending.RunStats, error)
}

// Result is what the external caller receives: either stats or an error,
// always with the run ID.
type Result struct {
	RunID string
	Stats trending.RunStats
	Err   error
}

// Ledger owns run rows and the top-level failure boundary around a run.
type Ledger struct {
	runs      trending.RunStore
	ids       trending.IDGenerator
	clock     trending.Clock
	publisher trending.Publisher
	topic     string
	logger    *zap.Logger
}

// New constructs a Ledger. The publisher is optional; when nil, no run
// events are emitted.
func New(
	runs trending.RunStore,
	ids trending.IDGenerator,
	clock trending.Clock,
	publisher trending.Publisher,
	topic string,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		runs:      runs,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Start creates a run row in running state and returns its ID.
func (l *Ledger) Start(ctx context.Context) (string, error) {
	runID, err := l.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	run := trending.CollectorRun{
		RunID:     runID,
		Status:    trending.RunStatusRunning,
		StartedAt: l.clock.Now(),
	}
	if err := l.runs.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return runID, nil
}

// Finish transitions the run to ok (runErr nil) or error. Finalization
// uses a context detached from cancellation so an abandoned caller
// cannot leave the row permanently running.
func (l *Ledger) Finish(ctx context.Context, runID string, stats trending.RunStats, runErr error) {
	status := trending.RunStatusOK
	errMsg := ""
	if runErr != nil {
		status = trending.RunStatusError
		errMsg = runErr.Error()
	}
	finishedAt := l.clock.Now()

	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := l.runs.FinishRun(finalizeCtx, runID, status, finishedAt, stats, errMsg); err != nil {
		l.logger.Error("finalize run failed", zap.String("run_id", runID), zap.Error(err))
	}
	telemetry.ObserveRun(string(status))

	l.publishEvent(finalizeCtx, trending.RunEvent{
		RunID:      runID,
		Status:     status,
		Stats:      stats,
		Error:      errMsg,
		FinishedAt: finishedAt,
	})
}

// Execute runs one full collection under the ledger's failure boundary:
// the row is created first and finalized no matter how the runner ends,
// including a panic, which is recorded as an error run.
func (l *Ledger) Execute(ctx context.Context, runner Runner) Result {
	runID, err := l.Start(ctx)
	if err != nil {
		return Result{Err: err}
	}
	l.logger.Info("collector run started", zap.String("run_id", runID))

	var stats trending.RunStats
	runErr := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("run panicked: %v", rec)
			}
		}()
		stats, err = runner.Run(ctx, runID)
		return err
	}()

	l.Finish(ctx, runID, stats, runErr)

	if runErr != nil {
		l.logger.Error("collector run failed", zap.String("run_id", runID), zap.Error(runErr))
		return Result{RunID: runID, Stats: stats, Err: runErr}
	}
	l.logger.Info("collector run completed",
		zap.String("run_id", runID),
		zap.Int64("videos_processed", stats.VideosProcessed),
		zap.Int64("feed_hits_created", stats.FeedHitsCreated),
	)
	return Result{RunID: runID, Stats: stats}
}

func (l *Ledger) publishEvent(ctx context.Context, event trending.RunEvent) {
	if l.publisher == nil {
		return
	}
	if _, err := l.publisher.Publish(ctx, l.topic, event); err != nil {
		l.logger.Warn("publish run event failed", zap.String("run_id", event.RunID), zap.Error(err))
	}
}
