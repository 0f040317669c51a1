package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorrecon/internal/config"
	"vendorrecon/internal/diag"
	"vendorrecon/internal/mapping"
	"vendorrecon/internal/models"
	"vendorrecon/internal/tabular"
	"vendorrecon/pkg/metadata"
)

const beCSV = `Vendor ID,Name,VAT Code
V-001,Acme,BE 01
V-002,Beta,BE 02
V-001,Acme dup,BE 01
`

const chCSV = `,,
Vendor Number,Vendor Name,City
V 003,Gamma,Bern
V-004,Delta,
`

// newTestPipeline writes the raw fixtures and returns a pipeline rooted in a temp dir.
func newTestPipeline(t *testing.T, mutate func(*config.Config)) (*Pipeline, *config.Config, *diag.Recorder) {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "BE.csv"), []byte(beCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "CH.csv"), []byte(chCSV), 0o644))

	cfg := config.Default()
	cfg.Output.BasePath = filepath.Join(dir, "out")
	cfg.Sources = []config.SourceConfig{
		{ID: "BE.csv", File: filepath.Join(input, "BE.csv"), Enabled: true},
		{ID: "CH.csv", File: filepath.Join(input, "CH.csv"), Enabled: true},
	}

	if mutate != nil {
		mutate(cfg)
	}

	rec := diag.NewRecorder()

	return New(cfg, nil, WithSink(rec), WithRunID("run-1")), cfg, rec
}

func TestPipeline_Discover(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, nil)

	res, err := p.Discover(context.Background())
	require.NoError(t, err)

	assert.False(t, res.KeptExisting)
	assert.Equal(t, cfg.MappingTablePath(), res.TablePath)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, 1, res.Sources[1].Stats.LeadingRowsDropped)
	assert.Equal(t, 1, res.Sources[1].Stats.CellsFilled)

	table, err := mapping.Read(res.TablePath)
	require.NoError(t, err)
	require.Len(t, table.Entries, 6)
	assert.Equal(t, models.MappingEntry{
		Source: "CH.csv", SourceField: "Vendor Number", StandardField: "vendor_id", Sample: models.Text("V 003"),
	}, table.Entries[3])

	_, err = metadata.VerifyFile(res.TablePath)
	assert.ErrorIs(t, err, metadata.ErrNotValidated)

	preview, err := os.ReadFile(res.PreviewPath)
	require.NoError(t, err)
	assert.Contains(t, string(preview), "## CH.csv")

	cleaned, err := tabular.ReadDataset(cfg.CleanedPath("CH.csv"), "CH.csv", tabular.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bern", "Bern"}, cleaned.Head("City", 5))
}

func TestPipeline_SignAndConsolidate(t *testing.T) {
	p, cfg, rec := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)

	result, err := p.Sign("reviewer@example.com")
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	summary, err := p.Consolidate(ctx)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.True(t, summary.MappingReviewed)
	assert.Equal(t, 5, summary.ConsolidatedRows)
	assert.Equal(t, 4, summary.CleanedRows)
	assert.Equal(t, 1, summary.DuplicatesRemoved)
	require.NotNil(t, summary.Duplicates)
	assert.Equal(t, 1, summary.Duplicates.DuplicateIdentifiers)
	assert.Equal(t, 4, summary.Duplicates.UniqueIdentifiers)
	assert.False(t, rec.Has(diag.KindUnreviewed))

	uncleaned, err := tabular.ReadDataset(cfg.ConsolidatedPath(UncleanedFile), "u", tabular.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor_id", "vendor_name", "vat_number", "city"}, uncleaned.Columns)

	cleaned, err := tabular.ReadDataset(cfg.ConsolidatedPath(CleanedFile), "c", tabular.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"V001", "V002", "V003", "V004"}, cleaned.Head("vendor_id", 10))
	assert.Equal(t, []string{"BE01", "BE02", "", ""}, cleaned.Head("vat_number", 10))

	dups, err := tabular.ReadDataset(cfg.ConsolidatedPath(DuplicatesFile), "d", tabular.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"V-001", "V-001"}, dups.Head("vendor_id", 10))
	assert.Equal(t, []string{"Acme", "Acme dup"}, dups.Head("vendor_name", 10))

	saved, err := ReadSummary(cfg.ConsolidatedPath(SummaryFile))
	require.NoError(t, err)
	assert.Equal(t, "run-1", saved.RunID)
	assert.Len(t, saved.Sources, 2)
}

func TestPipeline_Consolidate_UnreviewedWarns(t *testing.T) {
	p, _, rec := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)

	summary, err := p.Consolidate(ctx)
	require.NoError(t, err)
	assert.False(t, summary.MappingReviewed)
	assert.True(t, rec.Has(diag.KindUnreviewed))
}

func TestPipeline_Run_RequireReviewed(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, func(c *config.Config) { c.Mapping.RequireReviewed = true })

	res, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrUnreviewedMapping)
	require.NotNil(t, res.Discover)

	_, err = os.Stat(cfg.ConsolidatedPath(UncleanedFile))
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_Run(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, func(c *config.Config) {
		c.Output.Workbook = true
		c.Output.SQLitePath = "consolidated_data/recon.db"
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Summary.Normalized, 2)
	assert.Equal(t, cfg.ConsolidatedPath(WorkbookFile), res.Summary.Outputs["workbook"])
	assert.Equal(t, cfg.SQLitePath(), res.Summary.Outputs["sqlite"])

	for _, path := range res.Summary.Outputs {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestPipeline_Discover_KeepsReviewedTable(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)

	_, err = p.Sign("")
	require.NoError(t, err)

	res, err := p.Discover(ctx)
	require.NoError(t, err)
	assert.True(t, res.KeptExisting)
	assert.Equal(t, "reviewed", res.KeptReason)
	assert.True(t, strings.HasSuffix(res.TablePath, "mapping_table.draft.csv"))

	_, err = metadata.VerifyFile(cfg.MappingTablePath())
	assert.NoError(t, err)
}

func TestPipeline_Discover_OverwritesUntouchedDraft(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)

	res, err := p.Discover(ctx)
	require.NoError(t, err)
	assert.False(t, res.KeptExisting)
	assert.Equal(t, cfg.MappingTablePath(), res.TablePath)
}

func TestPipeline_Run_KeepsEditedTable(t *testing.T) {
	tests := []struct {
		name       string
		dropSig    bool
		wantReason string
	}{
		{name: "edited after drafting", wantReason: "edited since it was drafted"},
		{name: "edited without signature", dropSig: true, wantReason: "no signature, may hold manual edits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cfg, rec := newTestPipeline(t, nil)
			ctx := context.Background()

			_, err := p.Discover(ctx)
			require.NoError(t, err)

			tablePath := cfg.MappingTablePath()
			content, err := os.ReadFile(tablePath)
			require.NoError(t, err)
			require.Contains(t, string(content), "CH.csv,City,city")

			edited := strings.Replace(string(content), "CH.csv,City,city", "CH.csv,City,address", 1)
			require.NoError(t, os.WriteFile(tablePath, []byte(edited), 0o644))

			if tt.dropSig {
				require.NoError(t, os.Remove(metadata.SidecarPath(tablePath)))
			}

			res, err := p.Run(ctx)
			require.NoError(t, err)
			assert.True(t, res.Discover.KeptExisting)
			assert.Equal(t, tt.wantReason, res.Discover.KeptReason)
			assert.True(t, strings.HasSuffix(res.Discover.TablePath, "mapping_table.draft.csv"))

			after, err := os.ReadFile(tablePath)
			require.NoError(t, err)
			assert.Equal(t, edited, string(after))

			assert.False(t, res.Summary.MappingReviewed)
			assert.True(t, rec.Has(diag.KindUnreviewed))

			uncleaned, err := tabular.ReadDataset(cfg.ConsolidatedPath(UncleanedFile), "u", tabular.ReadOptions{})
			require.NoError(t, err)
			assert.Contains(t, uncleaned.Columns, "address")
			assert.NotContains(t, uncleaned.Columns, "city")
		})
	}
}

func TestPipeline_Consolidate_SkipsUnreadableSource(t *testing.T) {
	p, cfg, rec := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cfg.CleanedPath("CH.csv")))

	summary, err := p.Consolidate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.ConsolidatedRows)
	require.Len(t, rec.ByKind(diag.KindIOFailure), 1)
	assert.Equal(t, "CH.csv", rec.ByKind(diag.KindIOFailure)[0].Source)
	assert.NotEmpty(t, summary.Sources[1].Error)
}

func TestPipeline_Consolidate_MissingMappingTable(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)

	_, err := p.Consolidate(context.Background())
	assert.ErrorIs(t, err, ErrMappingTable)
}

func TestPipeline_Consolidate_NoIdentifierSkipsReport(t *testing.T) {
	p, cfg, rec := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Discover(ctx)
	require.NoError(t, err)

	table := &models.MappingTable{Entries: []models.MappingEntry{
		{Source: "BE.csv", SourceField: "Name", StandardField: "vendor_name"},
		{Source: "CH.csv", SourceField: "Vendor Name", StandardField: "vendor_name"},
	}}
	require.NoError(t, mapping.Write(cfg.MappingTablePath(), table))

	summary, err := p.Consolidate(ctx)
	require.NoError(t, err)

	assert.Nil(t, summary.Duplicates)
	assert.True(t, rec.Has(diag.KindReportingFailure))
	assert.True(t, rec.Has(diag.KindMissingMapping))
	assert.True(t, rec.Has(diag.KindSchemaDrift))
	assert.Equal(t, 5, summary.CleanedRows)
}

func TestPipeline_Sign_RejectsInvalidTable(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, func(c *config.Config) { c.Mapping.AllowUnmapped = false })

	table := &models.MappingTable{Entries: []models.MappingEntry{
		{Source: "BE.csv", SourceField: "Vendor ID", StandardField: "vendor_id"},
		{Source: "BE.csv", SourceField: "Memo", StandardField: models.Unmapped},
		{Source: "CH.csv", SourceField: "Vendor Number", StandardField: "vendor_id"},
	}}
	require.NoError(t, mapping.Write(cfg.MappingTablePath(), table))

	result, err := p.Sign("")
	require.ErrorIs(t, err, ErrInvalidMapping)
	assert.False(t, result.IsValid)

	_, err = metadata.Read(cfg.MappingTablePath())
	assert.ErrorIs(t, err, metadata.ErrNoSignature)
}

func TestPipeline_Normalize_ReportsMissingSource(t *testing.T) {
	p, cfg, rec := newTestPipeline(t, func(c *config.Config) {
		c.Sources = append(c.Sources, config.SourceConfig{ID: "NO.csv", File: "/nonexistent/NO.csv", Enabled: true})
	})

	results, err := p.Normalize(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NotEmpty(t, results[2].Error)
	assert.True(t, rec.Has(diag.KindIOFailure))

	_, err = os.Stat(cfg.CleanedPath("BE.csv"))
	assert.NoError(t, err)
}
