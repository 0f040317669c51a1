// Package mapping discovers candidate standard-field mappings for raw
// source columns and reads and writes the mapping table reviewed by humans.
package mapping

import (
	"vendorrecon/internal/diag"
	"vendorrecon/internal/models"
)

// Analyzer proposes standard fields for source columns by exact alias lookup.
type Analyzer struct {
	catalog *models.FieldCatalog
	sink    diag.Sink
}

// NewAnalyzer creates an analyzer over the given field catalog.
func NewAnalyzer(catalog *models.FieldCatalog, sink diag.Sink) *Analyzer {
	if catalog == nil {
		catalog = models.DefaultFieldCatalog()
	}

	return &Analyzer{catalog: catalog, sink: sink}
}

// Analyze emits one draft entry per (source, column) pair, in dataset order
// then column order. Each dataset's Name is its source identifier. The
// result is provisional and must be reviewed before it is applied.
func (a *Analyzer) Analyze(datasets []*models.Dataset) *models.MappingTable {
	table := &models.MappingTable{}

	for _, ds := range datasets {
		seen := make(map[string]bool, len(ds.Columns))
		unmapped := 0

		for i, col := range ds.Columns {
			if seen[col] {
				continue
			}

			seen[col] = true

			standard, ok := a.catalog.Resolve(col)
			if !ok {
				standard = models.Unmapped
				unmapped++
			}

			sample := models.Null()
			if ds.Len() > 0 {
				sample = ds.Rows[0][i]
			}

			table.Entries = append(table.Entries, models.MappingEntry{
				Source:        ds.Name,
				SourceField:   col,
				StandardField: standard,
				Sample:        sample,
			})
		}

		diag.Info(a.sink, ds.Name, "columns analyzed", map[string]any{
			"columns":  len(seen),
			"unmapped": unmapped,
		})

		if !table.HasIdentifier(ds.Name) {
			diag.Warn(a.sink, diag.KindMissingMapping, ds.Name,
				"no column matched a "+models.IdentifierField+" alias; resolve it during review", nil)
		}
	}

	return table
}
