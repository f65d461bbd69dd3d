// Package loader replaces raw tables with the contents of a sheet.
package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/reetl/internal/source"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

// ErrNoColumns is returned for sheets without a header row.
var ErrNoColumns = errors.New("sheet has no columns")

// TableRef names a destination table.
type TableRef struct {
	Schema string
	Name   string
}

func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Loader writes sheets into raw tables through one adapter connection.
type Loader struct {
	db     adapter.Adapter
	logger *slog.Logger
}

// New creates a loader bound to the run's adapter.
func New(db adapter.Adapter, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{db: db, logger: logger}
}

// Load drops and recreates ref with columns matching the sheet, then inserts
// every row in source order. Returns the number of rows inserted.
//
// All statements run in one transaction. On targets where DDL commits
// implicitly (MySQL) a failed insert can leave an empty table behind.
func (l *Loader) Load(ctx context.Context, sheet *source.Sheet, ref TableRef) (int64, error) {
	conn := l.db.SQLDB()
	if conn == nil {
		return 0, &LoadError{Table: ref.String(), Op: OpConnect, Err: adapter.ErrNotConnected}
	}
	if len(sheet.Columns) == 0 {
		return 0, &LoadError{Table: ref.String(), Op: OpCreate, Err: ErrNoColumns}
	}

	d := l.db.Dialect()
	table := d.QualifiedName(ref.Schema, ref.Name)
	start := time.Now()

	l.logger.Debug("loading raw table",
		slog.String("table", ref.String()),
		slog.String("sheet", sheet.Name),
		slog.Int("rows", sheet.Len()),
	)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, &LoadError{Table: ref.String(), Op: OpConnect, Err: err}
	}

	inserted, err := l.replace(ctx, tx, d, sheet, ref, table)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &LoadError{Table: ref.String(), Op: OpCommit, Err: err}
	}

	l.logger.Info("loaded raw table",
		slog.String("table", ref.String()),
		slog.Int64("rows", inserted),
		slog.Duration("duration", time.Since(start)),
	)
	return inserted, nil
}

func (l *Loader) replace(ctx context.Context, tx *sql.Tx, d *dialect.Dialect, sheet *source.Sheet, ref TableRef, table string) (int64, error) {
	name := ref.String()

	if d.Schemas && ref.Schema != "" {
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+d.QuoteIdentifier(ref.Schema)); err != nil {
			return 0, &LoadError{Table: name, Op: OpSchema, Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return 0, &LoadError{Table: name, Op: OpDrop, Err: err}
	}

	if _, err := tx.ExecContext(ctx, CreateTableSQL(d, table, sheet.Columns)); err != nil {
		return 0, &LoadError{Table: name, Op: OpCreate, Err: err}
	}

	if sheet.Len() == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, InsertSQL(d, table, sheet.Columns))
	if err != nil {
		return 0, &LoadError{Table: name, Op: OpInsert, Err: fmt.Errorf("prepare insert: %w", err)}
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for i, row := range sheet.Rows {
		if len(row) != len(sheet.Columns) {
			return inserted, &LoadError{Table: name, Op: OpInsert, Row: i + 1,
				Err: fmt.Errorf("row length %d != columns length %d", len(row), len(sheet.Columns))}
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, &LoadError{Table: name, Op: OpInsert, Row: i + 1, Err: err}
		}
		inserted++
	}
	return inserted, nil
}

// CreateTableSQL renders the CREATE TABLE statement for a raw table.
func CreateTableSQL(d *dialect.Dialect, table string, columns []source.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteIdentifier(c.Name) + " " + d.ColumnType(c.Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

// InsertSQL renders the parameterised single-row INSERT for a raw table.
func InsertSQL(d *dialect.Dialect, table string, columns []source.Column) string {
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = d.QuoteIdentifier(c.Name)
		params[i] = d.FormatPlaceholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(params, ", "))
}
