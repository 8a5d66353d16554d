// Package adapter provides the columnar engine contract used by leapclean to
// read and write parquet files.
//
// Concrete implementations live in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapclean/pkg/core"
)

// Type aliases so adapter implementations only need this package.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all columnar engine adapters must implement.
type Adapter interface {
	// Connect opens the engine session described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the session and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ReadOrders loads a parquet file of orders. The returned batch stays
	// attached to this session until the next ReadOrders call.
	ReadOrders(ctx context.Context, path string) (*core.OrderBatch, error)

	// WriteOrders writes cleaned records to path, replacing any existing
	// file. Columns the transformer does not touch are copied from batch.
	WriteOrders(ctx context.Context, path string, batch *core.OrderBatch, cleaned []core.CleanedOrderRecord) error

	// Preview returns at most limit rows of a parquet file.
	Preview(ctx context.Context, path string, limit int) (*Rows, error)
}
