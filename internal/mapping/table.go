package mapping

import (
	"errors"
	"fmt"
	"os"

	"vendorrecon/internal/models"
	"vendorrecon/internal/tabular"
)

// Mapping table file columns.
const (
	ColumnSource        = "Source"
	ColumnSourceField   = "Source Field"
	ColumnStandardField = "Standard Field"
	ColumnSampleData    = "Sample Data"
)

// Header is the column layout of a mapping table file.
var Header = []string{ColumnSource, ColumnSourceField, ColumnStandardField, ColumnSampleData}

// Mapping table errors.
var (
	ErrMissingColumn        = errors.New("mapping table is missing a required column")
	ErrDuplicateEntry       = errors.New("duplicate mapping entry")
	ErrUnknownStandardField = errors.New("unknown standard field")
	ErrEmptySource          = errors.New("mapping entry without source")
)

// ToDataset converts a mapping table to its tabular form.
func ToDataset(table *models.MappingTable) *models.Dataset {
	ds := models.NewDataset("mapping_table", Header)

	for _, e := range table.Entries {
		ds.AppendRow([]models.Cell{
			models.Text(e.Source),
			models.Text(e.SourceField),
			models.Text(e.StandardField),
			e.Sample,
		})
	}

	return ds
}

// FromDataset parses the tabular form of a mapping table. Columns are found
// by name; extra columns are ignored. A blank Standard Field reads as Unmapped.
func FromDataset(ds *models.Dataset) (*models.MappingTable, error) {
	idx := make(map[string]int, len(Header))

	for _, col := range Header {
		i := ds.ColumnIndex(col)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}

		idx[col] = i
	}

	table := &models.MappingTable{Entries: make([]models.MappingEntry, 0, ds.Len())}

	for _, row := range ds.Rows {
		standard := row[idx[ColumnStandardField]].String()
		if standard == "" {
			standard = models.Unmapped
		}

		table.Entries = append(table.Entries, models.MappingEntry{
			Source:        row[idx[ColumnSource]].String(),
			SourceField:   row[idx[ColumnSourceField]].String(),
			StandardField: standard,
			Sample:        row[idx[ColumnSampleData]],
		})
	}

	return table, nil
}

// Write saves the mapping table as delimited text.
func Write(path string, table *models.MappingTable) error {
	if err := tabular.WriteDataset(path, ToDataset(table)); err != nil {
		return fmt.Errorf("failed to write mapping table: %w", err)
	}

	return nil
}

// Read loads a mapping table without checking its invariants.
func Read(path string) (*models.MappingTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mapping table %s is not readable: %w", path, err)
	}

	ds, err := tabular.ReadDataset(path, "mapping_table", tabular.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("mapping table %s is not readable: %w", path, err)
	}

	table, err := FromDataset(ds)
	if err != nil {
		return nil, fmt.Errorf("mapping table %s: %w", path, err)
	}

	return table, nil
}

// Load reads a mapping table and enforces its invariants.
func Load(path string, catalog *models.FieldCatalog) (*models.MappingTable, error) {
	table, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Check(table, catalog); err != nil {
		return nil, fmt.Errorf("mapping table %s: %w", path, err)
	}

	return table, nil
}

// Check enforces the table invariants: every entry names its source, there
// is at most one entry per (Source, Source Field), and each Standard Field
// is Unmapped or a known standard field.
func Check(table *models.MappingTable, catalog *models.FieldCatalog) error {
	if catalog == nil {
		catalog = models.DefaultFieldCatalog()
	}

	type key struct{ source, field string }

	seen := make(map[key]int, len(table.Entries))

	for i, e := range table.Entries {
		row := i + 2

		if e.Source == "" {
			return fmt.Errorf("%w at row %d", ErrEmptySource, row)
		}

		k := key{e.Source, e.SourceField}
		if first, ok := seen[k]; ok {
			return fmt.Errorf("%w: %s/%q at rows %d and %d", ErrDuplicateEntry, e.Source, e.SourceField, first, row)
		}

		seen[k] = row

		if e.IsMapped() && !catalog.IsStandard(e.StandardField) {
			return fmt.Errorf("%w %q at row %d", ErrUnknownStandardField, e.StandardField, row)
		}
	}

	return nil
}
