// Package quality holds post-load data checks. Checks never fail a run;
// they log and report.
package quality

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/reetl/pkg/adapter"
)

// CompletenessMismatchWarning records a row count difference between a
// source sheet and its raw table.
type CompletenessMismatchWarning struct {
	Table       string
	Source      int64
	Destination int64
}

// Delta is destination minus source; negative when rows went missing.
func (w *CompletenessMismatchWarning) Delta() int64 {
	return w.Destination - w.Source
}

func (w *CompletenessMismatchWarning) Error() string {
	return fmt.Sprintf("row count mismatch for %s: source %d, db %d (delta %+d)",
		w.Table, w.Source, w.Destination, w.Delta())
}

// Report is the outcome of one completeness check.
type Report struct {
	Label       string
	Table       string
	Source      int64
	Destination int64
	Delta       int64
	Warning     *CompletenessMismatchWarning // nil when counts match
	Err         error                        // count query failure
}

// OK reports whether the check ran and counts matched.
func (r Report) OK() bool {
	return r.Err == nil && r.Warning == nil
}

// Checker compares source row counts against loaded tables.
type Checker struct {
	db     adapter.Adapter
	logger *slog.Logger
}

// NewChecker creates a checker on the run's adapter.
func NewChecker(db adapter.Adapter, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{db: db, logger: logger}
}

// Check counts rows in table (schema-qualified, unquoted) and compares the
// result with sourceRows. It never returns an error; failures are logged and
// carried in the report.
func (c *Checker) Check(ctx context.Context, label, schema, table string, sourceRows int64) Report {
	name := table
	if schema != "" {
		name = schema + "." + table
	}
	rep := Report{Label: label, Table: name, Source: sourceRows}

	conn := c.db.SQLDB()
	if conn == nil {
		rep.Err = adapter.ErrNotConnected
		c.logger.Warn("completeness check skipped", slog.String("table", name), slog.String("error", rep.Err.Error()))
		return rep
	}

	count, err := adapter.CountRows(ctx, conn, c.db.Dialect().QualifiedName(schema, table))
	if err != nil {
		rep.Err = err
		c.logger.Warn("completeness check failed", slog.String("table", name), slog.String("error", err.Error()))
		return rep
	}

	rep.Destination = count
	rep.Delta = count - sourceRows
	c.logger.Info(fmt.Sprintf("%s rows - source: %d, db: %d", label, sourceRows, count))

	if rep.Delta != 0 {
		rep.Warning = &CompletenessMismatchWarning{Table: name, Source: sourceRows, Destination: count}
		c.logger.Warn("row count mismatch",
			slog.String("table", name),
			slog.Int64("source", sourceRows),
			slog.Int64("destination", count),
			slog.Int64("delta", rep.Delta),
		)
	}
	return rep
}
