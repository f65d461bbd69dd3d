package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/reetl/pkg/core"
)

const runColumns = `id, status, state, failed_step, started_at, completed_at, error`

// CreateRun creates a new pipeline run in the running status.
func (s *SQLiteStore) CreateRun() (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &core.Run{
		ID:        generateID(),
		Status:    core.RunStatusRunning,
		State:     "Idle",
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, state, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), run.State, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// UpdateRunState records the state machine position of a run.
func (s *SQLiteStore) UpdateRunState(runID, state string) error {
	if s.db == nil {
		return errNotOpened
	}
	return s.execOne(`UPDATE runs SET state = ? WHERE id = ?`, "run", runID, state, runID)
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(runID string, status core.RunStatus, failedStep, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}
	return s.execOne(
		`UPDATE runs SET status = ?, failed_step = ?, completed_at = ?, error = ? WHERE id = ?`,
		"run", runID,
		string(status), nullString(failedStep), time.Now().UTC(), nullString(errMsg), runID,
	)
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	run := &core.Run{}
	var status string
	var failedStep, errMsg sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&run.ID, &status, &run.State, &failedStep, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	run.FailedStep = failedStep.String
	run.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func (s *SQLiteStore) execOne(query, kind, id string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
