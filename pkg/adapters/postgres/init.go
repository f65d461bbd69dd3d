package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

func init() {
	dialect.Register(Dialect)
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
