package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapclean/pkg/adapter"
)

// Importing this package with a blank identifier registers the "duckdb"
// engine:
//
//	import _ "github.com/leapstack-labs/leapclean/pkg/adapters/duckdb"
func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
