// Package consolidator stacks standardized datasets into one table.
package consolidator

import "vendorrecon/internal/models"

// ConsolidatedName is the name given to the combined dataset.
const ConsolidatedName = "consolidated"

// UnionColumns returns the union of the datasets' columns in first-appearance order.
func UnionColumns(datasets []*models.Dataset) []string {
	seen := make(map[string]bool)
	columns := []string{}

	for _, ds := range datasets {
		for _, col := range ds.Columns {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	return columns
}

// Consolidate appends the rows of every dataset in order. Cells for columns a
// dataset lacks are null.
func Consolidate(datasets []*models.Dataset) *models.Dataset {
	out := models.NewDataset(ConsolidatedName, UnionColumns(datasets))

	index := make(map[string]int, len(out.Columns))
	for i, col := range out.Columns {
		index[col] = i
	}

	for _, ds := range datasets {
		positions := make([]int, len(ds.Columns))
		for i, col := range ds.Columns {
			positions[i] = index[col]
		}

		for _, row := range ds.Rows {
			merged := make([]models.Cell, len(out.Columns))
			for i, cell := range row {
				merged[positions[i]] = cell
			}

			out.Rows = append(out.Rows, merged)
		}
	}

	return out
}
