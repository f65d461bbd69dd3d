package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

func init() {
	dialect.Register(Dialect)
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
