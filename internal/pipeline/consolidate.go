package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendorrecon/internal/cleaner"
	"vendorrecon/internal/consolidator"
	"vendorrecon/internal/dedup"
	"vendorrecon/internal/diag"
	"vendorrecon/internal/export"
	"vendorrecon/internal/mapping"
	"vendorrecon/internal/models"
	"vendorrecon/internal/standardizer"
	"vendorrecon/internal/tabular"
)

// Consolidate applies the mapping table to the cleaned per-source files and
// writes the consolidated outputs. Only an unusable mapping table (or an
// unreviewed one when review is required) stops the phase before any output
// is written; a source whose cleaned file cannot be read is skipped.
func (p *Pipeline) Consolidate(ctx context.Context) (*Summary, error) {
	start := time.Now()
	tablePath := p.cfg.MappingTablePath()

	table, err := mapping.Load(tablePath, p.cfg.FieldCatalog())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMappingTable, err)
	}

	reviewed, err := p.reviewState(tablePath)
	if err != nil {
		return nil, err
	}

	rules, err := p.cleaningRules()
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:           p.runID,
		StartedAt:       start,
		MappingTable:    tablePath,
		MappingReviewed: reviewed,
		Outputs:         make(map[string]string),
	}

	standardized, err := p.standardizeAll(ctx, table, summary)
	if err != nil {
		return summary, err
	}

	consolidated := consolidator.Consolidate(standardized)
	consolidated.Name = "uncleaned_consolidated_data"
	summary.ConsolidatedRows = consolidated.Len()

	uncleanedPath := p.cfg.ConsolidatedPath(UncleanedFile)
	if err := tabular.WriteDataset(uncleanedPath, consolidated); err != nil {
		return summary, err
	}

	summary.Outputs["uncleaned"] = uncleanedPath

	cleaned, cleanStats := cleaner.Clean(consolidated, rules, p.sink)
	summary.Cleaning = cleanStats

	deduped, removed := dedup.Deduplicate(cleaned, models.IdentifierField)
	deduped.Name = "cleaned_consolidated_data"
	summary.CleanedRows = deduped.Len()
	summary.DuplicatesRemoved = removed

	cleanedPath := p.cfg.ConsolidatedPath(CleanedFile)
	if err := tabular.WriteDataset(cleanedPath, deduped); err != nil {
		return summary, err
	}

	summary.Outputs["cleaned"] = cleanedPath

	outputs := []*models.Dataset{deduped, consolidated}

	if report := p.reportDuplicates(uncleanedPath); report != nil {
		summary.Duplicates = &report.Summary
		summary.Outputs["duplicates"] = p.cfg.ConsolidatedPath(DuplicatesFile)
		outputs = append(outputs, report.Rows)
	}

	p.writeExtras(ctx, outputs, summary)

	summary.FinishedAt = time.Now()
	summary.Errors = p.events.Count(diag.SeverityError)
	summary.Warnings = p.events.Count(diag.SeverityWarning) - summary.Errors

	summaryPath := p.cfg.ConsolidatedPath(SummaryFile)
	if err := writeSummary(summaryPath, summary); err != nil {
		return summary, err
	}

	summary.Outputs["summary"] = summaryPath

	p.log.Info("Consolidation complete",
		"sources", len(standardized),
		"rows", summary.ConsolidatedRows,
		"cleaned_rows", summary.CleanedRows,
		"duplicates_removed", removed,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	return summary, nil
}

func (p *Pipeline) cleaningRules() ([]cleaner.FieldRule, error) {
	pairs := make([][2]string, len(p.cfg.Cleaning.Rules))
	for i, r := range p.cfg.Cleaning.Rules {
		pairs[i] = [2]string{r.Field, r.Rule}
	}

	rules, err := cleaner.Resolve(pairs)
	if err != nil {
		return nil, fmt.Errorf("cleaning configuration: %w", err)
	}

	return rules, nil
}

func (p *Pipeline) standardizeAll(ctx context.Context, table *models.MappingTable, summary *Summary) ([]*models.Dataset, error) {
	std := standardizer.NewStandardizer(table, p.sink)

	var out []*models.Dataset

	for _, src := range p.cfg.GetEnabledSources() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := p.cfg.CleanedPath(src.ID)

		ds, err := tabular.ReadDataset(path, src.ID, tabular.ReadOptions{})
		if err != nil {
			diag.Error(p.sink, diag.KindIOFailure, src.ID, "cleaned source unreadable, skipped", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
			summary.Sources = append(summary.Sources, StandardizedSource{ID: src.ID, Error: err.Error()})

			continue
		}

		res := std.Standardize(ds)
		out = append(out, res.Dataset)

		summary.Sources = append(summary.Sources, StandardizedSource{
			ID:            src.ID,
			Rows:          res.Dataset.Len(),
			HasIdentifier: res.HasIdentifier,
			IDCountBefore: res.IDCountBefore,
			IDCountAfter:  res.IDCountAfter,
			Collisions:    res.Collisions,
			Unresolved:    res.Unresolved,
		})
	}

	if len(out) == 0 {
		return nil, ErrNoSources
	}

	return out, nil
}

// reportDuplicates builds the duplicate report from the uncleaned file on
// disk. Any failure is reported once and the report is skipped.
func (p *Pipeline) reportDuplicates(uncleanedPath string) *dedup.Report {
	ds, err := tabular.ReadDataset(uncleanedPath, "uncleaned_consolidated_data", tabular.ReadOptions{})
	if err != nil {
		diag.Error(p.sink, diag.KindIOFailure, "", "duplicate report skipped", map[string]any{
			"path":  uncleanedPath,
			"error": err.Error(),
		})

		return nil
	}

	report, err := dedup.BuildReport(ds, models.IdentifierField)
	if err != nil {
		kind := diag.KindIOFailure
		if errors.Is(err, dedup.ErrIdentifierMissing) {
			kind = diag.KindReportingFailure
		}

		diag.Error(p.sink, kind, "", "duplicate report skipped", map[string]any{"error": err.Error()})

		return nil
	}

	path := p.cfg.ConsolidatedPath(DuplicatesFile)
	if err := tabular.WriteDataset(path, report.Rows); err != nil {
		diag.Error(p.sink, diag.KindIOFailure, "", "duplicate report not written", map[string]any{
			"path":  path,
			"error": err.Error(),
		})

		return nil
	}

	diag.Info(p.sink, "", "duplicate report written", map[string]any{
		"duplicate_identifiers": report.Summary.DuplicateIdentifiers,
		"duplicate_rows":        report.Summary.DuplicateRows,
	})

	return report
}

// writeExtras writes the optional workbook and sqlite copies. Failures are
// diagnostics, since the CSV outputs already exist.
func (p *Pipeline) writeExtras(ctx context.Context, outputs []*models.Dataset, summary *Summary) {
	if p.cfg.Output.Workbook {
		path := p.cfg.ConsolidatedPath(WorkbookFile)
		if err := tabular.WriteWorkbook(path, outputs...); err != nil {
			diag.Error(p.sink, diag.KindIOFailure, "", "workbook not written", map[string]any{"path": path, "error": err.Error()})
		} else {
			summary.Outputs["workbook"] = path
		}
	}

	dbPath := p.cfg.SQLitePath()
	if dbPath == "" {
		return
	}

	if err := exportSQLite(ctx, dbPath, outputs); err != nil {
		diag.Error(p.sink, diag.KindIOFailure, "", "sqlite export failed", map[string]any{"path": dbPath, "error": err.Error()})

		return
	}

	summary.Outputs["sqlite"] = dbPath
}

func exportSQLite(ctx context.Context, path string, outputs []*models.Dataset) (err error) {
	exp, err := export.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := exp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return exp.WriteTables(ctx, outputs...)
}

// RunResult combines both phases of a full run.
type RunResult struct {
	Discover *DiscoverResult
	Summary  *Summary
}

// Run performs discovery and then consolidation. With review required, a
// freshly drafted table stops the run after discovery with
// ErrUnreviewedMapping so that it can be reviewed and signed.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	disc, err := p.Discover(ctx)

	result := &RunResult{Discover: disc}
	if err != nil {
		return result, err
	}

	summary, err := p.Consolidate(ctx)
	result.Summary = summary

	if err != nil {
		return result, err
	}

	summary.Normalized = disc.Sources
	if err := writeSummary(p.cfg.ConsolidatedPath(SummaryFile), summary); err != nil {
		return result, err
	}

	return result, nil
}
