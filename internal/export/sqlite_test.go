package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorrecon/internal/models"
)

type vendorRow struct {
	VendorID   sql.NullString `db:"vendor_id"`
	VendorName sql.NullString `db:"vendor_name"`
}

func vendors(name string) *models.Dataset {
	ds := models.NewDataset(name, []string{"vendor_id", "vendor_name"})
	ds.AppendRow([]models.Cell{models.Text("V1"), models.Text("Acme")})
	ds.AppendRow([]models.Cell{models.Null(), models.Text("")})

	return ds
}

func TestExporter_WriteTables(t *testing.T) {
	ctx := context.Background()

	exp, err := Open(ctx, filepath.Join(t.TempDir(), "out", "recon.db"))
	require.NoError(t, err)

	defer func() { _ = exp.Close() }()

	require.NoError(t, exp.WriteTables(ctx, vendors("cleaned_consolidated_data")))

	var rows []vendorRow
	require.NoError(t, exp.DB().SelectContext(ctx, &rows, `SELECT vendor_id, vendor_name FROM cleaned_consolidated_data ORDER BY rowid`))

	require.Len(t, rows, 2)
	assert.Equal(t, sql.NullString{String: "V1", Valid: true}, rows[0].VendorID)
	assert.False(t, rows[1].VendorID.Valid)
	assert.Equal(t, sql.NullString{String: "", Valid: true}, rows[1].VendorName)
}

func TestExporter_WriteTables_Replaces(t *testing.T) {
	ctx := context.Background()

	exp, err := Open(ctx, filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)

	defer func() { _ = exp.Close() }()

	require.NoError(t, exp.WriteTables(ctx, vendors("t")))

	smaller := models.NewDataset("t", []string{"vendor_id"})
	smaller.AppendRow([]models.Cell{models.Text("V9")})
	require.NoError(t, exp.WriteTables(ctx, smaller))

	var count int
	require.NoError(t, exp.DB().GetContext(ctx, &count, `SELECT COUNT(*) FROM t`))
	assert.Equal(t, 1, count)
}

func TestColumnNames(t *testing.T) {
	assert.Equal(t,
		[]string{"Name", "name_1", "column_2", "City"},
		ColumnNames([]string{"Name", "name", "", "City"}))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
