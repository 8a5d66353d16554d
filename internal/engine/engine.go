// Package engine runs the order cleaning batch: it reads the input file,
// applies the transformation pipeline, writes the cleaned file and records
// the run in the state store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leapstack-labs/leapclean/internal/state"
	"github.com/leapstack-labs/leapclean/pkg/adapter"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/leapstack-labs/leapclean/pkg/transform"
)

// ErrHistoryDisabled is returned by History when no state path is configured.
var ErrHistoryDisabled = errors.New("run history is disabled (state_path is empty)")

// Engine owns the columnar adapter, the state store and the pipeline for one
// process. It is not safe for concurrent Runs.
type Engine struct {
	// Database adapter (lazy initialized)
	db          core.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger   *slog.Logger
	store    core.Store
	pipeline *transform.Pipeline

	input        string
	output       string
	previewLimit int
	workers      int
}

// Config holds engine configuration.
type Config struct {
	// Input is the parquet file to clean.
	Input string
	// Output is the parquet file to write; it is replaced if it exists.
	Output string
	// PreviewLimit is how many output rows Run reads back (0 disables).
	PreviewLimit int
	// Workers is the transform parallelism (values below 1 mean 1).
	Workers int
	// Location is the zone order timestamps are interpreted in (nil is UTC).
	Location *time.Location
	// AddressPolicy controls malformed purchase addresses.
	AddressPolicy transform.AddressPolicy
	// StatePath is the SQLite run history database; empty disables history.
	StatePath string
	// AdapterConfig selects and configures the columnar engine (nil is in-memory DuckDB).
	AdapterConfig *adapter.Config
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine with lazy database connection.
// The adapter is only connected when Run or Preview is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	policy := cfg.AddressPolicy
	if policy == "" {
		policy = transform.AddressPolicyNull
	}
	if _, err := transform.ParseAddressPolicy(string(policy)); err != nil {
		return nil, err
	}

	logger.Debug("initializing engine",
		slog.String("input", cfg.Input),
		slog.String("output", cfg.Output),
		slog.String("state_path", cfg.StatePath))

	var store core.Store
	if cfg.StatePath != "" {
		s, err := openStore(cfg.StatePath, logger)
		if err != nil {
			return nil, err
		}
		store = s
	}

	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	opts := []transform.Option{
		transform.WithAddressPolicy(policy),
		transform.WithLogger(logger),
	}
	if cfg.Location != nil {
		opts = append(opts, transform.WithLocation(cfg.Location))
	}

	return &Engine{
		dbConfig:     dbConfig,
		logger:       logger,
		store:        store,
		pipeline:     transform.NewPipeline(opts...),
		input:        cfg.Input,
		output:       cfg.Output,
		previewLimit: cfg.PreviewLimit,
		workers:      max(cfg.Workers, 1),
	}, nil
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return store, nil
}

// ensureDBConnected lazily connects to the columnar engine.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to engine", slog.String("adapter_type", e.dbConfig.Type))

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create engine adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to engine: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %w", errors.Join(errs...))
	}
	return nil
}

// Rules returns the pipeline rule names in application order.
func (e *Engine) Rules() []string {
	return e.pipeline.Rules()
}

// History returns the most recent runs, newest first.
func (e *Engine) History(limit int) ([]*core.BatchRun, error) {
	if e.store == nil {
		return nil, ErrHistoryDisabled
	}
	return e.store.ListRuns(limit)
}
