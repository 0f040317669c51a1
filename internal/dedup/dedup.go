// Package dedup removes repeated vendors by identifier and reports the
// identifiers that occur on more than one row.
package dedup

import (
	"errors"
	"fmt"
	"sort"

	"vendorrecon/internal/models"
)

// ErrIdentifierMissing is returned when the identifier column is absent.
var ErrIdentifierMissing = errors.New("identifier column missing")

// Summary counts the rows behind a duplicate report.
type Summary struct {
	TotalRows            int `json:"totalRows"`
	UniqueIdentifiers    int `json:"uniqueIdentifiers"`
	DuplicateIdentifiers int `json:"duplicateIdentifiers"`
	DuplicateRows        int `json:"duplicateRows"`
}

// Report holds the duplicated rows and their summary.
type Report struct {
	Rows    *models.Dataset
	Summary Summary
}

// Deduplicate returns a copy of ds keeping the first row for each identifier.
// Rows with a null identifier are always kept. A dataset without the
// identifier column is returned as a plain copy.
func Deduplicate(ds *models.Dataset, idColumn string) (*models.Dataset, int) {
	out := models.NewDataset(ds.Name, ds.Columns)

	idx := ds.ColumnIndex(idColumn)
	seen := make(map[string]bool)
	removed := 0

	for _, row := range ds.Rows {
		if idx >= 0 && row[idx].Valid {
			id := row[idx].Value
			if seen[id] {
				removed++

				continue
			}

			seen[id] = true
		}

		out.Rows = append(out.Rows, append([]models.Cell(nil), row...))
	}

	return out, removed
}

// BuildReport collects every row whose identifier appears on two or more
// rows, stably sorted by identifier.
func BuildReport(ds *models.Dataset, idColumn string) (*Report, error) {
	idx := ds.ColumnIndex(idColumn)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrIdentifierMissing, idColumn)
	}

	counts := make(map[string]int)

	for _, row := range ds.Rows {
		if row[idx].Valid {
			counts[row[idx].Value]++
		}
	}

	report := &Report{
		Rows: models.NewDataset("duplicate_records", ds.Columns),
		Summary: Summary{
			TotalRows:         ds.Len(),
			UniqueIdentifiers: len(counts),
		},
	}

	for _, n := range counts {
		if n > 1 {
			report.Summary.DuplicateIdentifiers++
		}
	}

	for _, row := range ds.Rows {
		if row[idx].Valid && counts[row[idx].Value] > 1 {
			report.Rows.Rows = append(report.Rows.Rows, append([]models.Cell(nil), row...))
		}
	}

	sort.SliceStable(report.Rows.Rows, func(i, j int) bool {
		return report.Rows.Rows[i][idx].Value < report.Rows.Rows[j][idx].Value
	})

	report.Summary.DuplicateRows = report.Rows.Len()

	return report, nil
}
