// Package state keeps the history of pipeline runs in a SQLite database.
package state

import "github.com/leapstack-labs/reetl/pkg/core"

// Store is the run history interface used by the CLI and the pipeline driver.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun() (*core.Run, error)
	UpdateRunState(runID, state string) error
	CompleteRun(runID string, status core.RunStatus, failedStep, errMsg string) error
	GetRun(id string) (*core.Run, error)
	ListRuns(limit int) ([]*core.Run, error)

	RecordStepRun(sr *core.StepRun) error
	UpdateStepRun(sr *core.StepRun) error
	GetStepRuns(runID string) ([]*core.StepRun, error)
}

var _ Store = (*SQLiteStore)(nil)
