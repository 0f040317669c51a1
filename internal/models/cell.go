// Package models defines the tabular data structures shared by the pipeline stages.
package models

// Cell is a single text value that may be absent.
type Cell struct {
	Value string
	Valid bool
}

// Text returns a present cell holding s.
func Text(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Null returns an absent cell.
func Null() Cell {
	return Cell{}
}

// FromRaw converts a value read from a delimited file. Empty text is null,
// since the file format cannot tell the two apart.
func FromRaw(s string) Cell {
	if s == "" {
		return Cell{}
	}

	return Text(s)
}

// IsNull reports whether the cell is absent.
func (c Cell) IsNull() bool {
	return !c.Valid
}

// String returns the value, or an empty string for null.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}

	return c.Value
}
