// Package ingest copies the source workbook sheets into raw tables and
// checks that every row arrived.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/reetl/internal/loader"
	"github.com/leapstack-labs/reetl/internal/quality"
	"github.com/leapstack-labs/reetl/internal/source"
	"github.com/leapstack-labs/reetl/pkg/adapter"
)

// SheetTarget maps one sheet to its raw table.
type SheetTarget struct {
	Sheet string // sheet name in the workbook, matched exactly
	Table string // raw table name
	Label string // human-readable name used in completeness logs
}

// Config describes one ingestion.
type Config struct {
	Path    string
	Schema  string
	Targets []SheetTarget
}

// TableReport is the outcome for one sheet.
type TableReport struct {
	Sheet        string
	Table        loader.TableRef
	Rows         int64
	Completeness quality.Report
}

// Report is the outcome of a successful ingestion.
type Report struct {
	Tables   []TableReport
	Duration time.Duration
}

// Rows returns the total number of rows loaded.
func (r *Report) Rows() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Rows
	}
	return n
}

// Warnings returns the completeness mismatches found, in target order.
func (r *Report) Warnings() []*quality.CompletenessMismatchWarning {
	var out []*quality.CompletenessMismatchWarning
	for _, t := range r.Tables {
		if t.Completeness.Warning != nil {
			out = append(out, t.Completeness.Warning)
		}
	}
	return out
}

// Ingestor runs ingestion against one adapter connection.
type Ingestor struct {
	cfg     Config
	loader  *loader.Loader
	checker *quality.Checker
	logger  *slog.Logger
}

// New creates an ingestor writing through db.
func New(db adapter.Adapter, cfg Config, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingestor{
		cfg:     cfg,
		loader:  loader.New(db, logger),
		checker: quality.NewChecker(db, logger),
		logger:  logger,
	}
}

// Ingest reads every configured sheet, then replaces each raw table and runs
// its completeness check. A missing file or sheet aborts before any table is
// written. Completeness mismatches are reported, never returned as errors.
func (i *Ingestor) Ingest(ctx context.Context) (*Report, error) {
	start := time.Now()

	names := make([]string, len(i.cfg.Targets))
	for n, t := range i.cfg.Targets {
		names[n] = t.Sheet
	}

	i.logger.Info("reading source workbook", slog.String("path", i.cfg.Path), slog.Any("sheets", names))
	sheets, err := source.ReadSheets(i.cfg.Path, i.logger, names...)
	if err != nil {
		return nil, err
	}

	report := &Report{Tables: make([]TableReport, 0, len(i.cfg.Targets))}
	for _, t := range i.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet := sheets[t.Sheet]
		ref := loader.TableRef{Schema: i.cfg.Schema, Name: t.Table}

		rows, err := i.loader.Load(ctx, sheet, ref)
		if err != nil {
			return nil, err
		}

		label := t.Label
		if label == "" {
			label = t.Sheet
		}
		check := i.checker.Check(ctx, label, ref.Schema, ref.Name, int64(sheet.Len()))

		report.Tables = append(report.Tables, TableReport{
			Sheet:        t.Sheet,
			Table:        ref,
			Rows:         rows,
			Completeness: check,
		})
	}

	report.Duration = time.Since(start)
	i.logger.Info("ingestion complete",
		slog.Int("tables", len(report.Tables)),
		slog.Int64("rows", report.Rows()),
		slog.Int("warnings", len(report.Warnings())),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}
