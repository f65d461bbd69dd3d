// Package mysql provides a MySQL database adapter.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

// DefaultPort is the MySQL server port used when none is configured.
const DefaultPort = 3306

// Dialect is the MySQL dialect. Schemas are databases in MySQL, so
// CREATE SCHEMA IF NOT EXISTS creates the target database.
var Dialect = dialect.NewDialect("mysql").
	Identifiers("`", "`", "``").
	Type(core.KindFloat, "DOUBLE").
	Type(core.KindDateTime, "DATETIME").
	Script(dialect.ScriptConfig{BackslashEscapes: true, HashComments: true, DashCommentNeedsSpace: true}).
	Build()

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildMySQLDSN(cfg)

	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return Dialect
}

// buildMySQLDSN constructs a go-sql-driver DSN. Options are passed through as
// connection parameters.
func buildMySQLDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	if len(cfg.Options) > 0 {
		c.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			c.Params[k] = v
		}
	}
	return c.FormatDSN()
}
