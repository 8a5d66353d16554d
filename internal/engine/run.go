package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/leapstack-labs/leapclean/pkg/transform"
)

// Result summarizes one batch run.
type Result struct {
	// RunID is empty when run history is disabled.
	RunID      string
	InputPath  string
	OutputPath string
	Stats      transform.Stats
	Duration   time.Duration

	// Preview holds the first rows of the written file.
	Preview *Table
}

// Run cleans the configured input into the configured output.
//
// The run is recorded before reading; a failure at any later step marks it
// failed with whatever counters were reached. When a preview limit is set the
// first rows of the written file are read back into Result.Preview.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{InputPath: e.input, OutputPath: e.output}

	e.logger.Info("starting run", slog.String("input", e.input), slog.String("output", e.output))

	if e.store != nil {
		run, err := e.store.CreateRun(e.input, e.output)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.RunID = run.ID
		e.logger.Debug("created run", slog.String("run_id", run.ID))
	}

	var counts core.RunCounts
	if err := e.execute(ctx, res, &counts); err != nil {
		e.logger.Info("run failed", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
		e.finish(res.RunID, counts, err)
		res.Duration = time.Since(start)
		return res, err
	}

	e.finish(res.RunID, counts, nil)
	res.Duration = time.Since(start)

	e.logger.Info("run completed",
		slog.String("run_id", res.RunID),
		slog.Int64("rows_read", res.Stats.Read),
		slog.Int64("rows_written", res.Stats.Kept),
		slog.Duration("duration", res.Duration))

	if e.previewLimit > 0 {
		preview, err := e.Preview(ctx, e.output, e.previewLimit)
		if err != nil {
			return res, fmt.Errorf("failed to preview output: %w", err)
		}
		res.Preview = preview
	}
	return res, nil
}

func (e *Engine) execute(ctx context.Context, res *Result, counts *core.RunCounts) error {
	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}

	batch, err := e.db.ReadOrders(ctx, e.input)
	if err != nil {
		return err
	}
	counts.RowsRead = int64(len(batch.Records))

	e.logger.Debug("applying pipeline",
		slog.Int("records", len(batch.Records)),
		slog.Int("workers", e.workers))

	cleaned, stats, err := e.pipeline.ApplyBatch(ctx, batch.Records, e.workers)
	res.Stats = stats
	if err != nil {
		return fmt.Errorf("transform failed: %w", err)
	}
	*counts = stats.Counts()

	if err := e.db.WriteOrders(ctx, e.output, batch, cleaned); err != nil {
		counts.RowsWritten = 0
		return err
	}
	return nil
}

// finish records the outcome of a run; bookkeeping failures are logged only.
func (e *Engine) finish(runID string, counts core.RunCounts, runErr error) {
	if e.store == nil || runID == "" {
		return
	}
	var err error
	if runErr != nil {
		err = e.store.FailRun(runID, counts, runErr.Error())
	} else {
		err = e.store.CompleteRun(runID, counts)
	}
	if err != nil {
		e.logger.Warn("failed to record run outcome",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	}
}
