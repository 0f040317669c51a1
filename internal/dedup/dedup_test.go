package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorrecon/internal/models"
)

func vendors(ids ...string) *models.Dataset {
	ds := models.NewDataset("consolidated", []string{"vendor_id", "vendor_name"})
	for i, id := range ids {
		ds.AppendRow([]models.Cell{models.FromRaw(id), models.Text(string(rune('a' + i)))})
	}

	return ds
}

func TestDeduplicate(t *testing.T) {
	out, removed := Deduplicate(vendors("V1", "V2", "V1", "V3"), "vendor_id")

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"V1", "V2", "V3"}, out.Head("vendor_id", 10))
	assert.Equal(t, []string{"a", "b", "d"}, out.Head("vendor_name", 10))
}

func TestDeduplicate_NullsNeverCollide(t *testing.T) {
	out, removed := Deduplicate(vendors("", "V1", "", "V1"), "vendor_id")

	assert.Equal(t, 1, removed)
	assert.Equal(t, 3, out.Len())
}

func TestDeduplicate_Idempotent(t *testing.T) {
	once, _ := Deduplicate(vendors("V1", "V2", "V1", "V2", "V3"), "vendor_id")
	twice, removed := Deduplicate(once, "vendor_id")

	assert.Equal(t, 0, removed)
	assert.Equal(t, once, twice)
}

func TestDeduplicate_NoIdentifierColumn(t *testing.T) {
	ds := models.NewDataset("x", []string{"vendor_name"})
	ds.AppendRow([]models.Cell{models.Text("a")})
	ds.AppendRow([]models.Cell{models.Text("a")})

	out, removed := Deduplicate(ds, "vendor_id")

	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, out.Len())
}

func TestBuildReport(t *testing.T) {
	report, err := BuildReport(vendors("V2", "V1", "V3", "V1", "", ""), "vendor_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"V1", "V1"}, report.Rows.Head("vendor_id", 10))
	assert.Equal(t, []string{"b", "d"}, report.Rows.Head("vendor_name", 10))
	assert.Equal(t, Summary{TotalRows: 6, UniqueIdentifiers: 3, DuplicateIdentifiers: 1, DuplicateRows: 2}, report.Summary)
}

func TestBuildReport_SortedByIdentifier(t *testing.T) {
	report, err := BuildReport(vendors("V9", "V2", "V9", "V2"), "vendor_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"V2", "V2", "V9", "V9"}, report.Rows.Head("vendor_id", 10))
	assert.Equal(t, []string{"b", "d", "a", "c"}, report.Rows.Head("vendor_name", 10))
}

func TestBuildReport_MissingColumn(t *testing.T) {
	ds := models.NewDataset("x", []string{"vendor_name"})

	_, err := BuildReport(ds, "vendor_id")
	assert.ErrorIs(t, err, ErrIdentifierMissing)
}
