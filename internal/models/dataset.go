package models

// Dataset is an ordered table of text cells. Every row holds exactly
// len(Columns) cells. Column names may repeat until the standardizer
// disambiguates them.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(name string, columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Dataset{
		Name:    name,
		Columns: cols,
		Rows:    [][]Cell{},
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of the first column with the given name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}

	return -1
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// AppendRow adds a row, padding with nulls or truncating to the column count.
func (d *Dataset) AppendRow(row []Cell) {
	out := make([]Cell, len(d.Columns))
	copy(out, row)
	d.Rows = append(d.Rows, out)
}

// Values returns the cells of the named column, or nil if it does not exist.
func (d *Dataset) Values(name string) []Cell {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil
	}

	values := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[idx]
	}

	return values
}

// NonNullCount counts present cells in the named column.
func (d *Dataset) NonNullCount(name string) int {
	count := 0

	for _, c := range d.Values(name) {
		if c.Valid {
			count++
		}
	}

	return count
}

// Head returns up to n leading values of the named column, nulls rendered empty.
func (d *Dataset) Head(name string, n int) []string {
	values := d.Values(name)
	if len(values) > n {
		values = values[:n]
	}

	out := make([]string, len(values))
	for i, c := range values {
		out[i] = c.String()
	}

	return out
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	clone := NewDataset(d.Name, d.Columns)
	clone.Rows = make([][]Cell, len(d.Rows))

	for i, row := range d.Rows {
		clone.Rows[i] = append([]Cell(nil), row...)
	}

	return clone
}
