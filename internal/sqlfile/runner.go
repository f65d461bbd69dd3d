package sqlfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/reetl/pkg/adapter"
)

// Result describes one applied script.
type Result struct {
	File       string
	Statements int
	Duration   time.Duration
}

// Runner applies SQL scripts through an adapter connection.
type Runner struct {
	db       adapter.Adapter
	splitter Splitter
	logger   *slog.Logger
}

// NewRunner creates a runner using the lexical rules of the adapter's dialect.
func NewRunner(db adapter.Adapter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{db: db, splitter: SplitterFor(db.Dialect()), logger: logger}
}

// RunFile reads path and applies it with RunScript.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SQLExecutionError{File: path, Err: fmt.Errorf("failed to read script: %w", err)}
	}
	return r.RunScript(ctx, path, string(data))
}

// RunScript splits script into statements and executes them in order inside
// one transaction. Any failure rolls the transaction back. The name is used
// for logging and errors only.
//
// Targets that commit DDL implicitly (MySQL) cannot roll back statements
// that already ran.
func (r *Runner) RunScript(ctx context.Context, name, script string) (*Result, error) {
	conn := r.db.SQLDB()
	if conn == nil {
		return nil, &SQLExecutionError{File: name, Err: adapter.ErrNotConnected}
	}

	statements := r.splitter.Split(script)
	start := time.Now()
	log := r.logger.With(slog.String("file", filepath.Base(name)))
	log.Debug("executing script", slog.Int("statements", len(statements)))

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &SQLExecutionError{File: name, Total: len(statements), Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			log.Error("statement failed",
				slog.Int("index", i+1),
				slog.Int("total", len(statements)),
				slog.String("error", err.Error()),
			)
			return nil, &SQLExecutionError{
				File:      name,
				Index:     i + 1,
				Total:     len(statements),
				Statement: stmt,
				Err:       err,
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &SQLExecutionError{File: name, Total: len(statements), Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	res := &Result{File: name, Statements: len(statements), Duration: time.Since(start)}
	log.Info("script applied",
		slog.Int("statements", res.Statements),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}
