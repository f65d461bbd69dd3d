package source

import (
	"fmt"
	"strings"
)

// SourceNotFoundError is returned when the path does not resolve to a
// readable spreadsheet.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source spreadsheet %s not readable: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error {
	return e.Err
}

// SheetNotFoundError is returned when a required sheet is absent.
type SheetNotFoundError struct {
	Path      string
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found in %s (available: %s)", e.Sheet, e.Path, strings.Join(e.Available, ", "))
}
