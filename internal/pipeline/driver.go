// Package pipeline drives a run: ingestion followed by the SQL step files,
// strictly in order, tracking the run state machine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/reetl/internal/dag"
	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/quality"
	"github.com/leapstack-labs/reetl/internal/sqlfile"
	"github.com/leapstack-labs/reetl/pkg/core"
)

// Ingester loads the source workbook into raw tables.
type Ingester interface {
	Ingest(ctx context.Context) (*ingest.Report, error)
}

// ScriptRunner applies one SQL file atomically.
type ScriptRunner interface {
	RunFile(ctx context.Context, path string) (*sqlfile.Result, error)
}

// Recorder persists run history. Recording failures are logged and never
// affect the run.
type Recorder interface {
	CreateRun() (*core.Run, error)
	UpdateRunState(runID, state string) error
	CompleteRun(runID string, status core.RunStatus, failedStep, errMsg string) error
	RecordStepRun(sr *core.StepRun) error
	UpdateStepRun(sr *core.StepRun) error
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step       Step
	Status     core.StepRunStatus
	Statements int
	RowsLoaded int64
	Duration   time.Duration
	Err        error
}

// RunResult is the outcome of a run.
type RunResult struct {
	ID         string
	State      State
	Steps      []StepResult
	FailedStep string
	Ingest     *ingest.Report
	Duration   time.Duration
}

// Warnings returns completeness mismatches found during ingestion.
func (r *RunResult) Warnings() []*quality.CompletenessMismatchWarning {
	if r.Ingest == nil {
		return nil
	}
	return r.Ingest.Warnings()
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder stores run history through rec.
func WithRecorder(rec Recorder) Option {
	return func(d *Driver) {
		d.recorder = rec
	}
}

// WithTransitionHook calls fn on every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(d *Driver) {
		d.onTransition = fn
	}
}

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Driver executes a plan. Ingestion and SQL execution share the connection
// the caller opened for this run.
type Driver struct {
	plan         Plan
	graph        *dag.Graph
	ingester     Ingester
	runner       ScriptRunner
	recorder     Recorder
	onTransition TransitionFunc
	logger       *slog.Logger
}

// NewDriver creates a driver for plan.
func NewDriver(plan Plan, ing Ingester, runner ScriptRunner, opts ...Option) *Driver {
	d := &Driver{
		plan:     plan,
		ingester: ing,
		runner:   runner,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan returns the plan the driver executes.
func (d *Driver) Plan() Plan {
	return d.plan
}

// Run executes every step in plan order. A step starts only after the
// previous one succeeded. On the first failure the run moves to Failed,
// steps depending on the failed one directly or transitively are marked
// skipped, later independent steps stay pending and the step's error is
// returned unchanged together with the result. Completeness mismatches never
// fail the run.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	if err := d.plan.Validate(); err != nil {
		return nil, err
	}
	g, err := d.plan.Graph()
	if err != nil {
		return nil, err
	}
	run := *d
	run.graph = g
	return run.execute(ctx)
}

// execute runs on a per-run copy of the driver; createRun may drop the
// recorder for the rest of the run.
func (d *Driver) execute(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{State: StateIdle, Steps: make([]StepResult, len(d.plan.Steps))}
	for i, s := range d.plan.Steps {
		res.Steps[i] = StepResult{Step: s, Status: core.StepRunStatusPending}
	}

	machine := NewMachine(d.plan, func(from, to State) {
		res.State = to
		d.logger.Debug("state transition", "from", string(from), "to", string(to))
		d.record("state", func(r Recorder) error { return r.UpdateRunState(res.ID, string(to)) })
		if d.onTransition != nil {
			d.onTransition(from, to)
		}
	})

	res.ID = d.createRun()
	stepRuns := d.createStepRuns(res.ID)

	d.logger.Info("starting run", "run_id", res.ID, "steps", len(d.plan.Steps))

	for i, step := range d.plan.Steps {
		sr := &res.Steps[i]
		err := ctx.Err()
		if err == nil {
			err = d.runStep(ctx, machine, step, sr, stepRuns[i], res)
		}
		if err != nil {
			d.fail(machine, res, i, stepRuns, err)
			res.Duration = time.Since(start)
			return res, err
		}
	}

	if err := machine.Advance(StateComplete); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	d.record("complete", func(r Recorder) error {
		return r.CompleteRun(res.ID, core.RunStatusCompleted, "", "")
	})
	d.logger.Info("run completed",
		"run_id", res.ID,
		"duration", res.Duration,
		"warnings", len(res.Warnings()),
	)
	return res, nil
}

func (d *Driver) runStep(ctx context.Context, m *Machine, step Step, sr *StepResult, run *core.StepRun, res *RunResult) error {
	started := time.Now()
	sr.Status = core.StepRunStatusRunning
	if run != nil {
		run.Status = core.StepRunStatusRunning
		run.StartedAt = &started
		d.record("step", func(r Recorder) error { return r.UpdateStepRun(run) })
	}

	d.logger.Info("running step", "step", step.Name, "kind", string(step.Kind))

	var err error
	switch step.Kind {
	case KindIngest:
		if err = m.Advance(StateIngesting); err != nil {
			break
		}
		var rep *ingest.Report
		if rep, err = d.ingester.Ingest(ctx); err == nil {
			res.Ingest = rep
			sr.RowsLoaded = rep.Rows()
		}
	case KindSQL:
		var out *sqlfile.Result
		if out, err = d.runner.RunFile(ctx, step.File); err == nil {
			sr.Statements = out.Statements
		}
	default:
		err = fmt.Errorf("unknown step kind %q", step.Kind)
	}

	sr.Duration = time.Since(started)
	if err == nil && step.Reaches != "" {
		err = m.Advance(step.Reaches)
	}
	if err != nil {
		sr.Status = core.StepRunStatusFailed
		sr.Err = err
		d.logger.Error("step failed", "step", step.Name, "error", err.Error())
	} else {
		sr.Status = core.StepRunStatusSuccess
		d.logger.Info("step succeeded", "step", step.Name, "duration", sr.Duration)
	}

	if run != nil {
		completed := time.Now()
		run.Status = sr.Status
		run.Statements = sr.Statements
		run.RowsLoaded = sr.RowsLoaded
		run.CompletedAt = &completed
		run.DurationMS = sr.Duration.Milliseconds()
		if err != nil {
			run.Error = err.Error()
		}
		d.record("step", func(r Recorder) error { return r.UpdateStepRun(run) })
	}
	return err
}

// fail moves the run to Failed and marks the downstream steps of the failed
// one skipped.
func (d *Driver) fail(m *Machine, res *RunResult, index int, stepRuns []*core.StepRun, err error) {
	failed := d.plan.Steps[index].Name
	res.FailedStep = failed
	if sr := &res.Steps[index]; sr.Status != core.StepRunStatusFailed {
		sr.Status = core.StepRunStatusFailed
		sr.Err = err
	}

	downstream := make(map[string]bool)
	for _, name := range d.graph.GetDownstream(failed) {
		downstream[name] = true
	}

	reason := fmt.Sprintf("skipped: step %s failed", failed)
	for j := index + 1; j < len(res.Steps); j++ {
		if !downstream[res.Steps[j].Step.Name] {
			continue
		}
		res.Steps[j].Status = core.StepRunStatusSkipped
		if run := stepRuns[j]; run != nil {
			run.Status = core.StepRunStatusSkipped
			run.Error = reason
			d.record("step", func(r Recorder) error { return r.UpdateStepRun(run) })
		}
	}

	if ferr := m.Fail(); ferr != nil {
		d.logger.Warn("could not enter failed state", "error", ferr.Error())
	}
	d.record("complete", func(r Recorder) error {
		return r.CompleteRun(res.ID, core.RunStatusFailed, failed, err.Error())
	})
	d.logger.Error("run failed", "run_id", res.ID, "step", failed, "error", err.Error())
}

func (d *Driver) createRun() string {
	if d.recorder != nil {
		run, err := d.recorder.CreateRun()
		if err == nil && run != nil {
			return run.ID
		}
		d.logger.Warn("failed to record run", "error", errString(err))
		d.recorder = nil
	}
	return uuid.NewString()
}

func (d *Driver) createStepRuns(runID string) []*core.StepRun {
	runs := make([]*core.StepRun, len(d.plan.Steps))
	if d.recorder == nil {
		return runs
	}
	for i, s := range d.plan.Steps {
		sr := &core.StepRun{RunID: runID, Step: s.Name, Position: i + 1, Status: core.StepRunStatusPending}
		if err := d.recorder.RecordStepRun(sr); err != nil {
			d.logger.Warn("failed to record step", "step", s.Name, "error", err.Error())
			continue
		}
		runs[i] = sr
	}
	return runs
}

func (d *Driver) record(what string, fn func(Recorder) error) {
	if d.recorder == nil {
		return
	}
	if err := fn(d.recorder); err != nil {
		d.logger.Warn("failed to record run history", "what", what, "error", err.Error())
	}
}

func errString(err error) string {
	if err == nil {
		return "no run returned"
	}
	return err.Error()
}
