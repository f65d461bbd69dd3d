package core

// ColumnKind is the value kind detected for a sheet column.
type ColumnKind string

// Column kinds, widest last.
const (
	KindInteger  ColumnKind = "integer"
	KindFloat    ColumnKind = "float"
	KindBoolean  ColumnKind = "boolean"
	KindDateTime ColumnKind = "datetime"
	KindText     ColumnKind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k ColumnKind) Valid() bool {
	switch k {
	case KindInteger, KindFloat, KindBoolean, KindDateTime, KindText:
		return true
	}
	return false
}
