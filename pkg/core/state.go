package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StepRunStatus represents the status of a single step within a run.
type StepRunStatus string

// Step run status constants.
const (
	StepRunStatusPending StepRunStatus = "pending"
	StepRunStatusRunning StepRunStatus = "running"
	StepRunStatusSuccess StepRunStatus = "success"
	StepRunStatusFailed  StepRunStatus = "failed"
	StepRunStatusSkipped StepRunStatus = "skipped"
)

// Run represents one pipeline execution.
type Run struct {
	ID          string
	Status      RunStatus
	State       string
	FailedStep  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StepRun represents the execution of a single step within a run.
type StepRun struct {
	ID          string
	RunID       string
	Step        string
	Position    int
	Status      StepRunStatus
	Statements  int
	RowsLoaded  int64
	StartedAt   *time.Time
	CompletedAt *time.Time
	DurationMS  int64
	Error       string
}
