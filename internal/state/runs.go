package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, input_path, output_path, status,
	rows_read, rows_written, dropped_night, dropped_tv, dropped_null_product, malformed_address,
	started_at, completed_at, error`

// CreateRun records the start of a batch run.
func (s *SQLiteStore) CreateRun(inputPath, outputPath string) (*core.BatchRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.BatchRun{
		ID:         generateID(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     core.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("input", inputPath))

	_, err := s.db.Exec(
		`INSERT INTO batch_runs (id, input_path, output_path, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.OutputPath, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.BatchRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM batch_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as completed and stores its counters.
func (s *SQLiteStore) CompleteRun(id string, counts core.RunCounts) error {
	return s.finishRun(id, core.RunStatusCompleted, counts, "")
}

// FailRun marks a run as failed, keeping whatever counters were reached.
func (s *SQLiteStore) FailRun(id string, counts core.RunCounts, errMsg string) error {
	return s.finishRun(id, core.RunStatusFailed, counts, errMsg)
}

func (s *SQLiteStore) finishRun(id string, status core.RunStatus, counts core.RunCounts, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}

	s.logger.Debug("finishing run", slog.String("id", id), slog.String("status", string(status)))

	res, err := s.db.Exec(`
		UPDATE batch_runs SET
			status = ?, rows_read = ?, rows_written = ?,
			dropped_night = ?, dropped_tv = ?, dropped_null_product = ?, malformed_address = ?,
			completed_at = ?, error = ?
		WHERE id = ?`,
		string(status), counts.RowsRead, counts.RowsWritten,
		counts.DroppedNight, counts.DroppedTV, counts.DroppedNullProduct, counts.MalformedAddress,
		time.Now().UTC(), errValue, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// ListRuns retrieves the most recent runs up to the given limit.
// A non-positive limit returns every run.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.BatchRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM batch_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.BatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.BatchRun, error) {
	run := &core.BatchRun{}
	var (
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.InputPath, &run.OutputPath, &status,
		&run.Counts.RowsRead, &run.Counts.RowsWritten,
		&run.Counts.DroppedNight, &run.Counts.DroppedTV,
		&run.Counts.DroppedNullProduct, &run.Counts.MalformedAddress,
		&run.StartedAt, &completedAt, &errMsg,
	)
	if err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	run.StartedAt = run.StartedAt.UTC()
	run.Error = errMsg.String
	return run, nil
}
