package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Table is a small materialized result set.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Preview reads at most limit rows of the parquet file at path.
func (e *Engine) Preview(ctx context.Context, path string, limit int) (*Table, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	e.logger.Debug("previewing file", slog.String("path", path), slog.Int("limit", limit))

	rows, err := e.db.Preview(ctx, path, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	table := &Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}
