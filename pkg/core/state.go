package core

import "time"

// Store defines the interface for batch run bookkeeping.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(inputPath, outputPath string) (*BatchRun, error)
	GetRun(id string) (*BatchRun, error)
	CompleteRun(id string, counts RunCounts) error
	FailRun(id string, counts RunCounts, errMsg string) error
	ListRuns(limit int) ([]*BatchRun, error)
}

// RunStatus represents the status of a batch run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounts are the row counters recorded for a batch run.
type RunCounts struct {
	RowsRead           int64
	RowsWritten        int64
	DroppedNight       int64
	DroppedTV          int64
	DroppedNullProduct int64
	MalformedAddress   int64
}

// BatchRun represents one execution of the cleaning job.
type BatchRun struct {
	ID          string
	InputPath   string
	OutputPath  string
	Status      RunStatus
	Counts      RunCounts
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Duration returns how long the run took, or zero while it is still running.
func (r *BatchRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
