package state

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/reetl/pkg/core"
)

// RecordStepRun inserts a step record and assigns its ID.
func (s *SQLiteStore) RecordStepRun(sr *core.StepRun) error {
	if s.db == nil {
		return errNotOpened
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}
	if sr.Status == "" {
		sr.Status = core.StepRunStatusPending
	}

	_, err := s.db.Exec(`
		INSERT INTO step_runs (id, run_id, step, position, status, statements, rows_loaded,
			started_at, completed_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Step, sr.Position, string(sr.Status), sr.Statements, sr.RowsLoaded,
		sr.StartedAt, sr.CompletedAt, sr.DurationMS, nullString(sr.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record step run: %w", err)
	}
	return nil
}

// UpdateStepRun overwrites the mutable fields of a step record.
func (s *SQLiteStore) UpdateStepRun(sr *core.StepRun) error {
	if s.db == nil {
		return errNotOpened
	}
	return s.execOne(`
		UPDATE step_runs SET status = ?, statements = ?, rows_loaded = ?, started_at = ?,
			completed_at = ?, duration_ms = ?, error = ?
		WHERE id = ?`,
		"step run", sr.ID,
		string(sr.Status), sr.Statements, sr.RowsLoaded, sr.StartedAt,
		sr.CompletedAt, sr.DurationMS, nullString(sr.Error), sr.ID,
	)
}

// GetStepRuns returns the steps of a run in plan order.
func (s *SQLiteStore) GetStepRuns(runID string) ([]*core.StepRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, step, position, status, statements, rows_loaded,
			started_at, completed_at, duration_ms, error
		FROM step_runs WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.StepRun
	for rows.Next() {
		sr := &core.StepRun{}
		var status string
		var startedAt, completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Step, &sr.Position, &status, &sr.Statements, &sr.RowsLoaded,
			&startedAt, &completedAt, &sr.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan step run: %w", err)
		}
		sr.Status = core.StepRunStatus(status)
		sr.Error = errMsg.String
		if startedAt.Valid {
			t := startedAt.Time
			sr.StartedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			sr.CompletedAt = &t
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
