package source

import (
	"time"

	"github.com/leapstack-labs/reetl/pkg/core"
)

// Column is a named, typed sheet column.
type Column struct {
	Name string
	Kind core.ColumnKind
}

// Sheet is a tabular dataset read from one worksheet. Every row has exactly
// len(Columns) values; empty cells are nil.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Len returns the number of data rows.
func (s *Sheet) Len() int {
	return len(s.Rows)
}

// ColumnNames returns the column names in sheet order.
func (s *Sheet) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// kindOf returns the kind of a single non-nil cell value.
func kindOf(v any) core.ColumnKind {
	switch v.(type) {
	case int64:
		return core.KindInteger
	case float64:
		return core.KindFloat
	case bool:
		return core.KindBoolean
	case time.Time:
		return core.KindDateTime
	default:
		return core.KindText
	}
}

// inferKind returns the common kind of a column's values. Integers widen to
// float when mixed with floats; any other mix, and an all-empty column, is text.
func inferKind(values []any) core.ColumnKind {
	var kind core.ColumnKind
	for _, v := range values {
		if v == nil {
			continue
		}
		k := kindOf(v)
		switch {
		case kind == "":
			kind = k
		case kind == k:
		case (kind == core.KindInteger && k == core.KindFloat) || (kind == core.KindFloat && k == core.KindInteger):
			kind = core.KindFloat
		default:
			return core.KindText
		}
	}
	if kind == "" {
		return core.KindText
	}
	return kind
}
