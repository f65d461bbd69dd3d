package loader

import "fmt"

// Load operations reported in LoadError.Op.
const (
	OpConnect = "connect"
	OpSchema  = "schema"
	OpDrop    = "drop"
	OpCreate  = "create"
	OpInsert  = "insert"
	OpCommit  = "commit"
)

// LoadError is returned when a sheet cannot be written to its raw table.
type LoadError struct {
	Table string
	Op    string
	Row   int // 1-based data row for insert failures, otherwise 0
	Err   error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: %s row %d: %v", e.Table, e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
