// Package standardizer renames a cleaned source's columns to the standard
// field names recorded in the mapping table.
package standardizer

import (
	"fmt"

	"vendorrecon/internal/diag"
	"vendorrecon/internal/models"
)

// Result is a standardized dataset plus what happened to its identifier.
type Result struct {
	Dataset       *models.Dataset
	Renamed       map[string]string
	Collisions    []string
	// Unresolved lists names that still repeat after suffixing. Only one of
	// each survives consolidation.
	Unresolved    []string
	IDCountBefore int
	IDCountAfter  int
	HasIdentifier bool
}

// Standardizer applies a mapping table to source datasets.
type Standardizer struct {
	table *models.MappingTable
	sink  diag.Sink
}

// NewStandardizer creates a standardizer for the given mapping table.
func NewStandardizer(table *models.MappingTable, sink diag.Sink) *Standardizer {
	return &Standardizer{table: table, sink: sink}
}

// RenameMap builds the source-field to standard-field map for one source,
// leaving Unmapped entries out.
func (s *Standardizer) RenameMap(source string) map[string]string {
	renames := make(map[string]string)

	for _, e := range s.table.ForSource(source) {
		if e.IsMapped() {
			renames[e.SourceField] = e.StandardField
		}
	}

	return renames
}

// Standardize returns a renamed copy of ds. ds.Name is the source id used to
// look entries up. The input is not modified.
func (s *Standardizer) Standardize(ds *models.Dataset) *Result {
	source := ds.Name
	renames := s.RenameMap(source)

	mapsIdentifier := false

	for _, std := range renames {
		if std == models.IdentifierField {
			mapsIdentifier = true

			break
		}
	}

	if !mapsIdentifier {
		diag.Warn(s.sink, diag.KindMissingMapping, source,
			fmt.Sprintf("no column is mapped to %s", models.IdentifierField), nil)
	}

	result := &Result{
		Renamed:       make(map[string]string),
		IDCountBefore: identifierCount(ds),
	}

	diag.Info(s.sink, source, "identifier before standardization", map[string]any{
		"present":  ds.HasColumn(models.IdentifierField),
		"non_null": result.IDCountBefore,
	})

	out := ds.Clone()

	for i, col := range out.Columns {
		if std, ok := renames[col]; ok {
			out.Columns[i] = std
			result.Renamed[col] = std
		}
	}

	result.Collisions = DisambiguateColumns(out.Columns)
	if len(result.Collisions) > 0 {
		diag.Warn(s.sink, diag.KindColumnCollision, source,
			fmt.Sprintf("%d column names repeat after renaming; positional suffixes applied", len(result.Collisions)),
			map[string]any{"columns": result.Collisions})

		result.Unresolved = RepeatedColumns(out.Columns)
		if len(result.Unresolved) > 0 {
			diag.Error(s.sink, diag.KindColumnCollision, source,
				fmt.Sprintf("%d suffixed column names clash with existing columns; their values will overwrite each other", len(result.Unresolved)),
				map[string]any{"columns": result.Unresolved})
		}
	}

	result.Dataset = out
	result.HasIdentifier = out.HasColumn(models.IdentifierField)
	result.IDCountAfter = identifierCount(out)

	diag.Info(s.sink, source, "identifier after standardization", map[string]any{
		"present":  result.HasIdentifier,
		"non_null": result.IDCountAfter,
	})

	if !result.HasIdentifier {
		diag.Warn(s.sink, diag.KindSchemaDrift, source,
			fmt.Sprintf("%s column missing after standardization", models.IdentifierField), nil)
	}

	return result
}

// DisambiguateColumns appends "_<position>" to every occurrence of a name
// that appears more than once, in place. It returns the repeated names in
// first-appearance order.
func DisambiguateColumns(columns []string) []string {
	repeated := RepeatedColumns(columns)
	if len(repeated) == 0 {
		return nil
	}

	suffix := make(map[string]bool, len(repeated))
	for _, c := range repeated {
		suffix[c] = true
	}

	for i, c := range columns {
		if suffix[c] {
			columns[i] = fmt.Sprintf("%s_%d", c, i)
		}
	}

	return repeated
}

// RepeatedColumns returns the names that occur more than once, in
// first-appearance order. columns is not modified.
func RepeatedColumns(columns []string) []string {
	counts := make(map[string]int, len(columns))
	for _, c := range columns {
		counts[c]++
	}

	var repeated []string

	for _, c := range columns {
		if counts[c] > 1 {
			repeated = append(repeated, c)
			counts[c] = 0
		}
	}

	return repeated
}

func identifierCount(ds *models.Dataset) int {
	if !ds.HasColumn(models.IdentifierField) {
		return 0
	}

	return ds.NonNullCount(models.IdentifierField)
}
