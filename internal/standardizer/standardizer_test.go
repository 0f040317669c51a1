package standardizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorrecon/internal/diag"
	"vendorrecon/internal/models"
)

func testTable() *models.MappingTable {
	return &models.MappingTable{Entries: []models.MappingEntry{
		{Source: "BE.csv", SourceField: "Vendor ID", StandardField: "vendor_id"},
		{Source: "BE.csv", SourceField: "Name", StandardField: "vendor_name"},
		{Source: "BE.csv", SourceField: "Memo", StandardField: models.Unmapped},
		{Source: "CH.csv", SourceField: "Kreditor", StandardField: "vendor_id"},
		{Source: "CH.csv", SourceField: "Nummer", StandardField: "vendor_id"},
		{Source: "NO.csv", SourceField: "Navn", StandardField: "vendor_name"},
	}}
}

func testDataset(name string, columns []string, rows ...[]string) *models.Dataset {
	ds := models.NewDataset(name, columns)
	for _, r := range rows {
		row := make([]models.Cell, len(r))
		for i, v := range r {
			row[i] = models.FromRaw(v)
		}

		ds.AppendRow(row)
	}

	return ds
}

func TestStandardizer_Renames(t *testing.T) {
	rec := diag.NewRecorder()
	s := NewStandardizer(testTable(), rec)

	in := testDataset("BE.csv", []string{"Vendor ID", "Name", "Memo"}, []string{"V-1", "Acme", "x"}, []string{"", "Beta", ""})
	res := s.Standardize(in)

	assert.Equal(t, []string{"vendor_id", "vendor_name", "Memo"}, res.Dataset.Columns)
	assert.True(t, res.HasIdentifier)
	assert.Equal(t, 0, res.IDCountBefore)
	assert.Equal(t, 1, res.IDCountAfter)
	assert.Empty(t, res.Collisions)
	assert.False(t, rec.Has(diag.KindMissingMapping))
	assert.False(t, rec.Has(diag.KindSchemaDrift))

	// input untouched
	assert.Equal(t, []string{"Vendor ID", "Name", "Memo"}, in.Columns)
}

func TestStandardizer_Collision(t *testing.T) {
	rec := diag.NewRecorder()
	s := NewStandardizer(testTable(), rec)

	res := s.Standardize(testDataset("CH.csv", []string{"Kreditor", "Ort", "Nummer"}, []string{"1", "Bern", "2"}))

	assert.Equal(t, []string{"vendor_id_0", "Ort", "vendor_id_2"}, res.Dataset.Columns)
	assert.Equal(t, []string{"vendor_id"}, res.Collisions)
	assert.False(t, res.HasIdentifier)
	assert.True(t, rec.Has(diag.KindColumnCollision))
	assert.True(t, rec.Has(diag.KindSchemaDrift))
}

func TestStandardizer_SuffixClash(t *testing.T) {
	table := &models.MappingTable{Entries: []models.MappingEntry{
		{Source: "DK.csv", SourceField: "Navn", StandardField: "vendor_name"},
		{Source: "DK.csv", SourceField: "Firma", StandardField: "vendor_name"},
	}}

	rec := diag.NewRecorder()
	s := NewStandardizer(table, rec)

	res := s.Standardize(testDataset("DK.csv", []string{"Navn", "Firma", "vendor_name_1"}, []string{"A", "B", "C"}))

	assert.Equal(t, []string{"vendor_name_0", "vendor_name_1", "vendor_name_1"}, res.Dataset.Columns)
	assert.Equal(t, []string{"vendor_name"}, res.Collisions)
	assert.Equal(t, []string{"vendor_name_1"}, res.Unresolved)

	events := rec.ByKind(diag.KindColumnCollision)
	require.Len(t, events, 2)
	assert.Equal(t, diag.SeverityWarning, events[0].Severity)
	assert.Equal(t, diag.SeverityError, events[1].Severity)
}

func TestStandardizer_CollisionResolved(t *testing.T) {
	rec := diag.NewRecorder()
	s := NewStandardizer(testTable(), rec)

	res := s.Standardize(testDataset("CH.csv", []string{"Kreditor", "Nummer"}, []string{"1", "2"}))

	assert.Empty(t, res.Unresolved)
	assert.Equal(t, 0, rec.Count(diag.SeverityError))
}

func TestRepeatedColumns(t *testing.T) {
	cols := []string{"b", "a", "b", "a", "b", "c"}

	assert.Equal(t, []string{"b", "a"}, RepeatedColumns(cols))
	assert.Equal(t, []string{"b", "a", "b", "a", "b", "c"}, cols)
	assert.Nil(t, RepeatedColumns([]string{"a", "b"}))
}

func TestStandardizer_MissingMapping(t *testing.T) {
	rec := diag.NewRecorder()
	s := NewStandardizer(testTable(), rec)

	res := s.Standardize(testDataset("NO.csv", []string{"Navn"}, []string{"Nordic AS"}))

	assert.Equal(t, []string{"vendor_name"}, res.Dataset.Columns)
	assert.False(t, res.HasIdentifier)
	require.Len(t, rec.ByKind(diag.KindMissingMapping), 1)
	assert.Equal(t, "NO.csv", rec.ByKind(diag.KindMissingMapping)[0].Source)
}

func TestStandardizer_Idempotent(t *testing.T) {
	s := NewStandardizer(testTable(), nil)
	in := testDataset("BE.csv", []string{"Vendor ID", "Name"}, []string{"V1", "Acme"})

	first := s.Standardize(in)
	second := s.Standardize(in)

	assert.Equal(t, first.Dataset, second.Dataset)
}

func TestStandardizer_RenameMap(t *testing.T) {
	s := NewStandardizer(testTable(), nil)

	assert.Equal(t, map[string]string{"Vendor ID": "vendor_id", "Name": "vendor_name"}, s.RenameMap("BE.csv"))
	assert.Empty(t, s.RenameMap("unknown.csv"))
}

func TestDisambiguateColumns(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		want     []string
		repeated []string
	}{
		{"no repeats", []string{"a", "b"}, []string{"a", "b"}, nil},
		{"pair", []string{"vendor_id", "name", "vendor_id"}, []string{"vendor_id_0", "name", "vendor_id_2"}, []string{"vendor_id"}},
		{"two groups", []string{"a", "b", "a", "b", "c"}, []string{"a_0", "b_1", "a_2", "b_3", "c"}, []string{"a", "b"}},
		{"suffix clashes with existing", []string{"a", "a", "a_1"}, []string{"a_0", "a_1", "a_1"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := append([]string(nil), tt.in...)
			repeated := DisambiguateColumns(cols)

			assert.Equal(t, tt.want, cols)
			assert.Equal(t, tt.repeated, repeated)
		})
	}
}
