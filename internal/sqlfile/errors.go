package sqlfile

import "fmt"

// SQLExecutionError is returned when a script cannot be applied. The
// transaction has been rolled back when this error is returned.
type SQLExecutionError struct {
	File      string
	Index     int // 1-based statement index; 0 when reading, begin or commit failed
	Total     int
	Statement string
	Err       error
}

func (e *SQLExecutionError) Error() string {
	name := e.File
	if name == "" {
		name = "script"
	}
	if e.Index == 0 {
		return fmt.Sprintf("%s: %v", name, e.Err)
	}
	return fmt.Sprintf("%s: statement %d of %d failed: %v", name, e.Index, e.Total, e.Err)
}

func (e *SQLExecutionError) Unwrap() error {
	return e.Err
}
