package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vendorrecon/internal/diag"
	"vendorrecon/internal/formatter"
	"vendorrecon/internal/mapping"
	"vendorrecon/internal/models"
	"vendorrecon/pkg/metadata"
)

// DiscoverResult is the outcome of the discovery phase.
type DiscoverResult struct {
	Sources     []SourceResult
	Table       *models.MappingTable
	TablePath   string
	PreviewPath string
	// KeptExisting is set when the table on disk was left alone and the
	// draft was written beside it instead. KeptReason says why.
	KeptExisting bool
	KeptReason   string
}

// Discover normalizes every source, proposes a mapping for each column and
// writes the draft mapping table with an unreviewed signature and a
// markdown preview. A reviewed or hand-edited table is never overwritten.
func (p *Pipeline) Discover(ctx context.Context) (*DiscoverResult, error) {
	results, datasets, err := p.normalizeAll(ctx)
	if err != nil {
		return &DiscoverResult{Sources: results}, err
	}

	analyzer := mapping.NewAnalyzer(p.cfg.FieldCatalog(), p.sink)
	table := analyzer.Analyze(datasets)

	res := &DiscoverResult{
		Sources:   results,
		Table:     table,
		TablePath: p.cfg.MappingTablePath(),
	}

	if reason := p.keepReason(res.TablePath); reason != "" {
		res.KeptExisting = true
		res.KeptReason = reason
		res.TablePath = draftPath(res.TablePath)
		p.log.Info("Existing mapping table kept; draft written alongside", "reason", reason, "draft", res.TablePath)
	}

	if err := mapping.Write(res.TablePath, table); err != nil {
		return res, err
	}

	if _, err := metadata.SignFile(res.TablePath, false, Version, ""); err != nil {
		return res, fmt.Errorf("failed to sign draft mapping table: %w", err)
	}

	res.PreviewPath = previewPath(res.TablePath)
	if err := os.WriteFile(res.PreviewPath, []byte(formatter.MappingPreview(table)), 0o644); err != nil {
		return res, fmt.Errorf("failed to write mapping preview: %w", err)
	}

	unmapped := 0

	for _, e := range table.Entries {
		if !e.IsMapped() {
			unmapped++
		}
	}

	p.log.Info("Draft mapping table written",
		"path", res.TablePath,
		"entries", len(table.Entries),
		"unmapped", unmapped,
	)

	return res, nil
}

// keepReason reports why the table at path must not be replaced by a new
// draft. Only a missing table, or an untouched draft that still matches its
// unreviewed signature, may be overwritten.
func (p *Pipeline) keepReason(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}

	_, err := metadata.VerifyFile(path)

	switch {
	case err == nil:
		return "reviewed"
	case errors.Is(err, metadata.ErrNotValidated):
		return ""
	case errors.Is(err, metadata.ErrNoSignature):
		return "no signature, may hold manual edits"
	case errors.Is(err, metadata.ErrHashMismatch):
		return "edited since it was drafted"
	default:
		return err.Error()
	}
}

// reviewState checks the mapping table signature. It returns whether the
// table is reviewed, and an error only when review is required.
func (p *Pipeline) reviewState(path string) (bool, error) {
	_, err := metadata.VerifyFile(path)
	if err == nil {
		return true, nil
	}

	reason := err.Error()

	switch {
	case errors.Is(err, metadata.ErrNoSignature):
		reason = "no review signature"
	case errors.Is(err, metadata.ErrHashMismatch):
		reason = "edited since it was signed"
	case errors.Is(err, metadata.ErrNotValidated):
		reason = "signature not marked as reviewed"
	}

	if p.cfg.Mapping.RequireReviewed {
		return false, fmt.Errorf("%w: %s (%s)", ErrUnreviewedMapping, path, reason)
	}

	diag.Warn(p.sink, diag.KindUnreviewed, "", "mapping table used without review: "+reason, map[string]any{"path": path})

	return false, nil
}
