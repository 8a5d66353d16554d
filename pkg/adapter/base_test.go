package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	t.Run("nil DB", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		assert.NoError(t, base.Close())
	})

	t.Run("open DB", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		base := &BaseSQLAdapter{DB: db}
		require.NoError(t, base.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		errMsg    string
	}{
		{
			name:    "exec without connection",
			sql:     "SELECT 1",
			errMsg:  "database connection not established",
			setupDB: false,
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET threads").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: "SET threads = 4",
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("COPY orders").WillReturnError(assert.AnError)
			},
			sql:    "COPY orders TO 'out.parquet'",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				var mock sqlmock.Sqlmock
				base, mock = newMockBase(t)
				tt.setupMock(mock)
			}

			err := base.Exec(context.Background(), tt.sql)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	t.Run("query without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		rows, err := base.Query(context.Background(), "SELECT 1")
		require.Error(t, err)
		assert.Nil(t, rows)
		assert.Contains(t, err.Error(), "database connection not established")
	})

	t.Run("query success", func(t *testing.T) {
		base, mock := newMockBase(t)
		mock.ExpectQuery("SELECT product").WillReturnRows(
			sqlmock.NewRows([]string{"product", "category"}).
				AddRow("usb-c cable", "electronics").
				AddRow("lamp", "home"),
		)

		rows, err := base.Query(context.Background(), "SELECT product, category FROM orders")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		var n int
		for rows.Next() {
			n++
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, 2, n)
	})

	t.Run("query with error", func(t *testing.T) {
		base, mock := newMockBase(t)
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		rows, err := base.Query(context.Background(), "SELECT * FROM missing")
		require.Error(t, err)
		assert.Nil(t, rows)
		assert.Contains(t, err.Error(), "failed to execute query")
	})
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	assert.False(t, (&BaseSQLAdapter{}).IsConnected())

	base, _ := newMockBase(t)
	assert.True(t, base.IsConnected())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"order_date"`, QuoteIdent("order_date"))
	assert.Equal(t, `"odd""name"`, QuoteIdent(`odd"name`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'orders.parquet'`, QuoteLiteral("orders.parquet"))
	assert.Equal(t, `'o''brien.parquet'`, QuoteLiteral("o'brien.parquet"))
}
