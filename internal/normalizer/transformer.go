package normalizer

import (
	"strings"

	"vendorrecon/internal/models"
)

// Transformer implements the individual repair steps applied to a raw table.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// FindHeader returns the index of the first record with at least one
// non-blank cell, or -1 when every record is blank.
func (t *Transformer) FindHeader(records [][]string) int {
	for i, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}

	return -1
}

// ParseRows converts raw records into a dataset over header. Empty cells
// become null; short rows are padded and long rows truncated.
func (t *Transformer) ParseRows(name string, header []string, records [][]string) *models.Dataset {
	ds := models.NewDataset(name, header)

	for _, rec := range records {
		row := make([]models.Cell, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = models.FromRaw(rec[i])
			}
		}

		ds.Rows = append(ds.Rows, row)
	}

	return ds
}

// DropBlankRows removes rows whose cells are all null and returns how many were removed.
func (t *Transformer) DropBlankRows(ds *models.Dataset) int {
	kept := ds.Rows[:0]

	for _, row := range ds.Rows {
		if !isBlank(row) {
			kept = append(kept, row)
		}
	}

	removed := len(ds.Rows) - len(kept)
	ds.Rows = kept

	return removed
}

// ForwardFill replaces each null with the nearest non-null value above it in
// the same column and returns how many cells were filled.
func (t *Transformer) ForwardFill(ds *models.Dataset) int {
	filled := 0
	last := make([]models.Cell, len(ds.Columns))

	for _, row := range ds.Rows {
		for i, c := range row {
			switch {
			case c.Valid:
				last[i] = c
			case last[i].Valid:
				row[i] = last[i]
				filled++
			}
		}
	}

	return filled
}

// DropDuplicateRows removes rows equal in every column to an earlier row and
// returns how many were removed.
func (t *Transformer) DropDuplicateRows(ds *models.Dataset) int {
	seen := make(map[string]bool, len(ds.Rows))
	kept := ds.Rows[:0]

	for _, row := range ds.Rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}

		seen[key] = true
		kept = append(kept, row)
	}

	removed := len(ds.Rows) - len(kept)
	ds.Rows = kept

	return removed
}

func isBlank(row []models.Cell) bool {
	for _, c := range row {
		if c.Valid {
			return false
		}
	}

	return true
}

// rowKey encodes a row so that null and empty text never collide.
func rowKey(row []models.Cell) string {
	var b strings.Builder

	for _, c := range row {
		if c.Valid {
			b.WriteByte('v')
			b.WriteString(c.Value)
		} else {
			b.WriteByte('n')
		}

		b.WriteByte(0)
	}

	return b.String()
}
