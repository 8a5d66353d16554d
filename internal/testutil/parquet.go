package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// OrdersFixture is a five-row orders table covering every transformer
// outcome, in this order:
//
//	1  evening order, kept, state MA
//	2  03:12 order, dropped as a night order
//	3  afternoon order, kept, state CA
//	4  TV product, dropped
//	5  morning order with NULL category and a malformed address, kept
const OrdersFixture = `SELECT * FROM (VALUES
	(1, TIMESTAMP '2023-01-22 21:25:00', 'iPhone', 'Vêtements', '944 Walnut St, Boston, MA 02215', 700.00::DECIMAL(10,2)),
	(2, TIMESTAMP '2023-01-28 03:12:00', 'Lightning Charging Cable', 'Alimentation', '185 Maple St, Portland, OR 97035', 14.95::DECIMAL(10,2)),
	(3, TIMESTAMP '2023-01-17 13:33:00', '27in FHD Monitor', 'Électronique', '538 Adams St, San Francisco, CA 94016', 149.99::DECIMAL(10,2)),
	(4, TIMESTAMP '2023-01-05 20:33:00', 'Flatscreen TV', 'Électronique', '738 10th St, Los Angeles, CA 90001', 300.00::DECIMAL(10,2)),
	(5, TIMESTAMP '2023-01-25 11:59:00', 'AA Batteries (4-pack)', NULL::VARCHAR, 'malformed', 3.84::DECIMAL(10,2))
) t(order_id, order_date, product, category, purchase_address, price)`

// WriteParquet runs query in a throwaway DuckDB database and writes its
// result to path as parquet.
func WriteParquet(t testing.TB, path, query string) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	stmt := fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", query, strings.ReplaceAll(path, "'", "''"))
	_, err = db.Exec(stmt)
	require.NoError(t, err, "writing parquet fixture %s", path)
}
