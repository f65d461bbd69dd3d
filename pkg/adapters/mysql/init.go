package mysql

// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/reetl/pkg/adapters/mysql"

import (
	"log/slog"

	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

func init() {
	dialect.Register(Dialect)
	adapter.Register("mysql", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
