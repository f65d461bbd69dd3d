package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/pipeline"
	"github.com/leapstack-labs/reetl/pkg/core"
)

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgCyan, color.Bold)
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func statusText(status core.StepRunStatus) string {
	switch status {
	case core.StepRunStatusSuccess:
		return successColor.Sprint(status)
	case core.StepRunStatusFailed:
		return failureColor.Sprint(status)
	case core.StepRunStatusSkipped:
		return warnColor.Sprint(status)
	default:
		return string(status)
	}
}

func runStatusText(status core.RunStatus) string {
	switch status {
	case core.RunStatusCompleted:
		return successColor.Sprint(status)
	case core.RunStatusFailed:
		return failureColor.Sprint(status)
	default:
		return string(status)
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// renderRunResult prints the step table, completeness warnings and the
// final status line of a pipeline run.
func renderRunResult(w io.Writer, res *pipeline.RunResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Step", "Status", "Statements", "Rows", "Duration"})
	for i, sr := range res.Steps {
		rows := ""
		if sr.Step.Kind == pipeline.KindIngest && sr.Status == core.StepRunStatusSuccess {
			rows = fmt.Sprint(sr.RowsLoaded)
		}
		stmts := ""
		if sr.Step.Kind == pipeline.KindSQL && sr.Status == core.StepRunStatusSuccess {
			stmts = fmt.Sprint(sr.Statements)
		}
		t.AppendRow(table.Row{i + 1, sr.Step.Name, statusText(sr.Status), stmts, rows, formatDuration(sr.Duration)})
	}
	t.Render()

	renderWarnings(w, res.Ingest)

	if res.FailedStep != "" {
		_, _ = failureColor.Fprintf(w, "Run %s failed at step %s (state %s) after %s\n",
			res.ID, res.FailedStep, res.State, formatDuration(res.Duration))
		return
	}
	_, _ = successColor.Fprintf(w, "Run %s reached %s in %s\n", res.ID, res.State, formatDuration(res.Duration))
}

// renderIngestReport prints loaded tables with their completeness checks.
func renderIngestReport(w io.Writer, rep *ingest.Report) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Sheet", "Table", "Source", "Database", "Delta"})
	for _, tr := range rep.Tables {
		c := tr.Completeness
		dest := fmt.Sprint(c.Destination)
		delta := fmt.Sprintf("%+d", c.Delta)
		switch {
		case c.Err != nil:
			dest, delta = warnColor.Sprint("unknown"), ""
		case c.Warning != nil:
			delta = warnColor.Sprint(delta)
		}
		t.AppendRow(table.Row{tr.Sheet, tr.Table.String(), tr.Rows, dest, delta})
	}
	t.AppendFooter(table.Row{"", "Total", rep.Rows(), "", ""})
	t.Render()

	renderWarnings(w, rep)
	_, _ = successColor.Fprintf(w, "Loaded %d rows in %s\n", rep.Rows(), formatDuration(rep.Duration))
}

func renderWarnings(w io.Writer, rep *ingest.Report) {
	if rep == nil {
		return
	}
	for _, warn := range rep.Warnings() {
		_, _ = warnColor.Fprintf(w, "warning: %v\n", warn)
	}
	for _, tr := range rep.Tables {
		if tr.Completeness.Err != nil {
			_, _ = warnColor.Fprintf(w, "warning: completeness check for %s failed: %v\n", tr.Table, tr.Completeness.Err)
		}
	}
}

// renderPlan prints the steps of plan in execution order followed by the
// states a successful run passes through.
func renderPlan(w io.Writer, plan pipeline.Plan) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Step", "Kind", "File", "Depends On", "Reaches"})
	for i, s := range plan.Steps {
		t.AppendRow(table.Row{i + 1, s.Name, s.Kind, s.File, strings.Join(s.DependsOn, ", "), s.Reaches})
	}
	t.Render()

	seq := pipeline.NewMachine(plan, nil).Sequence()
	states := make([]string, len(seq))
	for i, st := range seq {
		states[i] = string(st)
	}
	_, _ = fmt.Fprintf(w, "States: %s\n", strings.Join(states, " -> "))
}

// renderRuns prints run history rows.
func renderRuns(w io.Writer, runs []*core.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Status", "State", "Failed Step", "Started", "Duration"})
	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = formatDuration(r.CompletedAt.Sub(r.StartedAt))
		}
		t.AppendRow(table.Row{r.ID, runStatusText(r.Status), r.State, r.FailedStep, r.StartedAt.Local().Format(time.DateTime), dur})
	}
	t.Render()
}

// renderStepRuns prints the steps recorded for one run.
func renderStepRuns(w io.Writer, run *core.Run, steps []*core.StepRun) {
	_, _ = headerColor.Fprintf(w, "Run %s: %s (state %s)\n", run.ID, runStatusText(run.Status), run.State)
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Step", "Status", "Statements", "Rows", "Duration", "Error"})
	for _, s := range steps {
		t.AppendRow(table.Row{s.Position, s.Step, statusText(s.Status), s.Statements, s.RowsLoaded,
			formatDuration(time.Duration(s.DurationMS) * time.Millisecond), s.Error})
	}
	t.Render()
}
