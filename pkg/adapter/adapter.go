// Package adapter provides the database adapter contract used by the
// ingestion and transformation steps.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves by name from init().
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter is one live database connection for the duration of a run.
// It is created once per run and passed explicitly to every component.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// SQLDB exposes the underlying pool for transactional work.
	// Returns nil before Connect.
	SQLDB() *sql.DB

	// Dialect returns the SQL dialect for this adapter.
	Dialect() *dialect.Dialect
}
