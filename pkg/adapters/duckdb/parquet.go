package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapclean/pkg/adapter"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/marcboeker/go-duckdb"
)

// Staging tables live in the main schema so every pooled connection sees
// them; temp tables are connection-local.
const (
	sourceTable   = "__leapclean_source"
	cleanedTable  = "__leapclean_cleaned"
	ordinalColumn = "__leapclean_ordinal"
)

// requiredColumns must exist in every input file.
var requiredColumns = []string{
	core.ColumnOrderDate,
	core.ColumnProduct,
	core.ColumnCategory,
	core.ColumnPurchaseAddress,
}

// isRemote reports whether path is a URL DuckDB resolves itself (s3://, https://).
func isRemote(path string) bool {
	return strings.Contains(path, "://")
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// checkInput fails fast with ErrInputNotFound for missing local files.
func checkInput(path string) error {
	if isRemote(path) || isGlob(path) {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %w", adapter.ErrInputNotFound, path, err)
	}
	return nil
}

// ReadOrders stages the parquet file at path and loads it into memory.
func (a *Adapter) ReadOrders(ctx context.Context, path string) (*core.OrderBatch, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if err := checkInput(path); err != nil {
		return nil, err
	}

	a.Logger.Debug("staging parquet input", slog.String("path", path))

	if err := a.stageSource(ctx, path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", adapter.ErrReadFailed, path, err)
	}

	batch, err := a.loadBatch(ctx, path)
	if err != nil {
		a.dropStaging(ctx)
		return nil, err
	}

	a.Logger.Debug("parquet input loaded",
		slog.String("path", path),
		slog.Int("columns", len(batch.Columns)),
		slog.Int("rows", len(batch.Records)))

	return batch, nil
}

// stageSource copies the file into the source staging table with an
// ordinal column. The filename and file_row_number virtual columns give
// globs a stable order; when the file already has a column of either name
// the scan order is used instead.
func (a *Adapter) stageSource(ctx context.Context, path string) error {
	names, err := a.fileColumns(ctx, path)
	if err != nil {
		return err
	}
	if slices.Contains(names, ordinalColumn) {
		return fmt.Errorf("column %q is reserved", ordinalColumn)
	}

	source := adapter.QuoteLiteral(path)
	//nolint:gosec // path is quoted as a literal
	stage := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS
SELECT *, row_number() OVER () - 1 AS %s
FROM read_parquet(%s)`,
		adapter.QuoteIdent(sourceTable), adapter.QuoteIdent(ordinalColumn), source)
	if !slices.Contains(names, "filename") && !slices.Contains(names, "file_row_number") {
		//nolint:gosec // path is quoted as a literal
		stage = fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS
SELECT * EXCLUDE (filename, file_row_number),
       row_number() OVER (ORDER BY filename, file_row_number) - 1 AS %s
FROM read_parquet(%s, filename = true, file_row_number = true)`,
			adapter.QuoteIdent(sourceTable), adapter.QuoteIdent(ordinalColumn), source)
	}
	return a.Exec(ctx, stage)
}

// fileColumns returns the column names stored in the parquet file.
func (a *Adapter) fileColumns(ctx context.Context, path string) ([]string, error) {
	//nolint:gosec // path is quoted as a literal
	rows, err := a.DB.QueryContext(ctx, "DESCRIBE SELECT * FROM read_parquet("+adapter.QuoteLiteral(path)+")")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var names []string
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		names = append(names, fmt.Sprint(values[0]))
	}
	return names, rows.Err()
}

// loadBatch reads the staged schema and records.
func (a *Adapter) loadBatch(ctx context.Context, path string) (*core.OrderBatch, error) {
	columns, err := a.sourceColumns(ctx)
	if err != nil {
		return nil, err
	}

	batch := &core.OrderBatch{Path: path, Columns: columns}
	for _, name := range requiredColumns {
		if !batch.HasColumn(name) {
			return nil, fmt.Errorf("%w %q in %s", adapter.ErrMissingColumn, name, path)
		}
	}

	records, err := a.loadRecords(ctx, columns)
	if err != nil {
		return nil, err
	}
	batch.Records = records
	return batch, nil
}

// sourceColumns returns the staged schema without the ordinal column.
func (a *Adapter) sourceColumns(ctx context.Context) ([]core.Column, error) {
	rows, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name = ?
		ORDER BY ordinal_position
	`, sourceTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		if col.Name == ordinalColumn {
			continue
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func (a *Adapter) loadRecords(ctx context.Context, columns []core.Column) ([]core.OrderRecord, error) {
	names := make([]string, 0, len(columns)+1)
	names = append(names, adapter.QuoteIdent(ordinalColumn))
	for _, c := range columns {
		names = append(names, adapter.QuoteIdent(c.Name))
	}

	//nolint:gosec // identifiers are quoted
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(names, ", "), adapter.QuoteIdent(sourceTable), adapter.QuoteIdent(ordinalColumn))
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged input: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.OrderRecord
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan input row: %w", err)
		}
		rec := core.OrderRecord{Passthrough: make(map[string]any, len(columns))}
		ordinal, err := toInt64(values[0])
		if err != nil {
			return nil, err
		}
		rec.Ordinal = ordinal

		for i, c := range columns {
			v := values[i+1]
			switch c.Name {
			case core.ColumnOrderDate:
				rec.OrderDate = v
			case core.ColumnProduct:
				rec.Product = toStringPtr(v)
			case core.ColumnCategory:
				rec.Category = toStringPtr(v)
			case core.ColumnPurchaseAddress:
				rec.PurchaseAddress = toStringPtr(v)
			default:
				rec.Passthrough[c.Name] = v
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating input rows: %w", err)
	}
	return records, nil
}

// WriteOrders writes cleaned to path as parquet. Derived columns come from
// cleaned; every other column is joined back from the staged source by
// ordinal so its parquet type is preserved exactly. Local destinations are
// written to a temporary file in the same directory and renamed into place.
func (a *Adapter) WriteOrders(ctx context.Context, path string, batch *core.OrderBatch, cleaned []core.CleanedOrderRecord) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if batch == nil {
		return fmt.Errorf("%w: no source batch", adapter.ErrWriteFailed)
	}
	defer a.dropStaging(ctx)

	if err := a.stageCleaned(ctx, cleaned); err != nil {
		return fmt.Errorf("%w: %w", adapter.ErrWriteFailed, err)
	}

	target := path
	if !isRemote(path) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("%w: failed to create output directory: %w", adapter.ErrWriteFailed, err)
		}
		target = tempSibling(path)
	}

	a.Logger.Debug("writing parquet output",
		slog.String("path", path),
		slog.Int("rows", len(cleaned)))

	copyStmt := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", outputSelect(batch), adapter.QuoteLiteral(target))
	if err := a.Exec(ctx, copyStmt); err != nil {
		if target != path {
			_ = os.RemoveAll(target)
		}
		return fmt.Errorf("%w: %s: %w", adapter.ErrWriteFailed, path, err)
	}

	if target != path {
		if err := replaceFile(target, path); err != nil {
			_ = os.RemoveAll(target)
			return fmt.Errorf("%w: %s: %w", adapter.ErrWriteFailed, path, err)
		}
	}
	return nil
}

// outputSelect builds the query joining derived columns onto the source.
func outputSelect(batch *core.OrderBatch) string {
	cols := batch.OutputColumns()
	exprs := make([]string, len(cols))
	for i, name := range cols {
		if core.IsDerived(name) {
			exprs[i] = "c." + adapter.QuoteIdent(name) + " AS " + adapter.QuoteIdent(name)
		} else {
			exprs[i] = "s." + adapter.QuoteIdent(name)
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s c JOIN %s s ON s.%s = c.ordinal ORDER BY c.ordinal",
		strings.Join(exprs, ", "),
		adapter.QuoteIdent(cleanedTable),
		adapter.QuoteIdent(sourceTable),
		adapter.QuoteIdent(ordinalColumn))
}

// stageCleaned bulk-loads the derived columns with the DuckDB appender.
func (a *Adapter) stageCleaned(ctx context.Context, cleaned []core.CleanedOrderRecord) error {
	create := fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
	ordinal BIGINT,
	order_date DATE,
	time_of_day VARCHAR,
	product VARCHAR,
	category VARCHAR,
	purchase_state VARCHAR
)`, adapter.QuoteIdent(cleanedTable))
	if err := a.Exec(ctx, create); err != nil {
		return err
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(raw any) error {
		driverConn, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", raw)
		}
		app, err := duckdb.NewAppenderFromConn(driverConn, "", cleanedTable)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		for i := range cleaned {
			rec := &cleaned[i]
			var tod driver.Value
			if rec.TimeOfDay != nil {
				tod = string(*rec.TimeOfDay)
			}
			if err := app.AppendRow(
				rec.Ordinal,
				rec.OrderDate,
				tod,
				rec.Product,
				optional(rec.Category),
				optional(rec.PurchaseState),
			); err != nil {
				_ = app.Close()
				return fmt.Errorf("failed to append row %d: %w", rec.Ordinal, err)
			}
		}
		return app.Close()
	})
}

// dropStaging removes staging tables; failures are logged, not returned.
func (a *Adapter) dropStaging(ctx context.Context) {
	for _, table := range []string{cleanedTable, sourceTable} {
		if _, err := a.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+adapter.QuoteIdent(table)); err != nil {
			a.Logger.Debug("failed to drop staging table", slog.String("table", table), slog.String("error", err.Error()))
		}
	}
}

// Preview returns at most limit rows of the parquet file at path.
func (a *Adapter) Preview(ctx context.Context, path string, limit int) (*core.Rows, error) {
	if err := checkInput(path); err != nil {
		return nil, err
	}
	//nolint:gosec // path is quoted as a literal
	query := fmt.Sprintf("SELECT * FROM read_parquet(%s) LIMIT %d", adapter.QuoteLiteral(path), max(limit, 0))
	return a.Query(ctx, query)
}

// tempSibling returns an unused path next to path for an atomic replace.
func tempSibling(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".tmp-"+uuid.NewString())
}

// replaceFile renames src over dst. A directory at dst (as left by engines
// that write parquet as a folder of parts) is removed first.
func replaceFile(src, dst string) error {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("failed to remove existing output directory: %w", err)
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil //nolint:gosec // ordinals fit in int64
	default:
		return 0, fmt.Errorf("unexpected ordinal type %T", v)
	}
}

func toStringPtr(v any) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return &s
	case []byte:
		str := string(s)
		return &str
	default:
		str := fmt.Sprint(s)
		return &str
	}
}

func optional(s *string) driver.Value {
	if s == nil {
		return nil
	}
	return *s
}
