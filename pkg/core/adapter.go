package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all columnar engine adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the engine.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ReadOrders loads a parquet file of orders.
	ReadOrders(ctx context.Context, path string) (*OrderBatch, error)

	// WriteOrders writes cleaned records to a parquet file, replacing any
	// existing file at path. batch must have been read by the same adapter.
	WriteOrders(ctx context.Context, path string, batch *OrderBatch, cleaned []CleanedOrderRecord) error

	// Preview returns at most limit rows of a parquet file.
	Preview(ctx context.Context, path string, limit int) (*Rows, error)
}

// AdapterConfig holds configuration for connecting to an engine.
type AdapterConfig struct {
	Type    string
	Path    string
	Options map[string]string
	Params  map[string]any
}

// Column represents a column of a columnar file.
type Column struct {
	Name     string
	Type     string
	Position int
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
