// Package sqlite provides a SQLite database adapter backed by the pure Go
// modernc.org/sqlite driver. SQLite has a single namespace, so configured
// schemas are ignored and raw tables are created unqualified.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/leapstack-labs/reetl/pkg/dialect"

	_ "modernc.org/sqlite" // sqlite driver
)

// Dialect is the SQLite dialect.
var Dialect = dialect.NewDialect("sqlite").
	DefaultSchema("main").
	WithoutSchemas().
	Type(core.KindInteger, "INTEGER").
	Type(core.KindFloat, "REAL").
	Type(core.KindDateTime, "DATETIME").
	Build()

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the database file (":memory:" when empty).
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildSQLiteDSN(cfg)

	a.Logger.Debug("connecting to sqlite", slog.String("dsn", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return Dialect
}

// buildSQLiteDSN turns options into _pragma query parameters.
func buildSQLiteDSN(cfg adapter.Config) string {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if len(cfg.Options) == 0 {
		return path
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", k, cfg.Options[k]))
	}
	return "file:" + path + "?" + q.Encode()
}
