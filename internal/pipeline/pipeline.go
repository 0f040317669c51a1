// Package pipeline runs the reconciliation stages end to end from an
// explicit configuration: normalize the raw exports, discover a draft
// mapping table, and consolidate the reviewed mapping into the output files.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vendorrecon/internal/config"
	"vendorrecon/internal/diag"
	"vendorrecon/internal/logger"
	"vendorrecon/internal/models"
	"vendorrecon/internal/normalizer"
	"vendorrecon/internal/source"
	"vendorrecon/internal/tabular"
)

// Output file names inside the consolidated directory.
const (
	UncleanedFile  = "uncleaned_consolidated_data.csv"
	CleanedFile    = "cleaned_consolidated_data.csv"
	DuplicatesFile = "duplicate_records.csv"
	WorkbookFile   = "consolidated_data.xlsx"
	SummaryFile    = "run_summary.json"
)

// Version is recorded in mapping table signatures.
const Version = "1.0"

// Pipeline errors.
var (
	ErrMappingTable      = errors.New("mapping table unusable")
	ErrUnreviewedMapping = errors.New("mapping table has not been reviewed")
	ErrInvalidMapping    = errors.New("mapping table failed validation")
	ErrNoSources         = errors.New("no source could be processed")
)

// Pipeline holds everything one run needs. Nothing is read from globals.
type Pipeline struct {
	cfg     *config.Config
	log     *logger.Logger
	sink    diag.Sink
	extra   diag.Sink
	events  *diag.Recorder
	fetcher *source.Fetcher
	runID   string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSink sends diagnostics to s in addition to the logger.
func WithSink(s diag.Sink) Option {
	return func(p *Pipeline) {
		p.extra = s
	}
}

// WithRunID fixes the run identifier.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// New creates a pipeline for cfg.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{
		cfg:   cfg,
		runID: uuid.NewString(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.log = log.With("run", p.runID)

	p.events = diag.NewRecorder()

	p.sink = diag.Tee(diag.NewLogSink(p.log), p.events)
	if p.extra != nil {
		p.sink = diag.Tee(p.sink, p.extra)
	}

	p.fetcher = source.NewFetcher(cfg.Retry, p.log)

	return p
}

// RunID returns the identifier recorded in the run summary.
func (p *Pipeline) RunID() string {
	return p.runID
}

// SourceResult describes one normalized source.
type SourceResult struct {
	ID          string           `json:"id"`
	RawPath     string           `json:"rawPath,omitempty"`
	CleanedPath string           `json:"cleanedPath,omitempty"`
	Stats       normalizer.Stats `json:"stats"`
	Error       string           `json:"error,omitempty"`
}

// Normalize acquires every enabled source, repairs it and writes the cleaned
// per-source file. A source that cannot be read or written is reported and
// skipped; the rest continue.
func (p *Pipeline) Normalize(ctx context.Context) ([]SourceResult, error) {
	results, _, err := p.normalizeAll(ctx)

	return results, err
}

func (p *Pipeline) normalizeAll(ctx context.Context) ([]SourceResult, []*models.Dataset, error) {
	processor := normalizer.NewProcessor(p.sink)

	var (
		results  []SourceResult
		datasets []*models.Dataset
	)

	for _, src := range p.cfg.GetEnabledSources() {
		if err := ctx.Err(); err != nil {
			return results, datasets, err
		}

		res := SourceResult{ID: src.ID}

		ds, err := p.normalizeSource(ctx, processor, src, &res)
		if err != nil {
			res.Error = err.Error()
			diag.Error(p.sink, diag.KindIOFailure, src.ID, err.Error(), map[string]any{"path": src.GetSource()})
			results = append(results, res)

			continue
		}

		res.CleanedPath = p.cfg.CleanedPath(src.ID)
		if err := tabular.WriteDataset(res.CleanedPath, ds); err != nil {
			res.Error = err.Error()
			diag.Error(p.sink, diag.KindIOFailure, src.ID, err.Error(), map[string]any{"path": res.CleanedPath})
			results = append(results, res)

			continue
		}

		p.log.Info("Source normalized", "source", src.ID, "rows", res.Stats.Rows, "path", res.CleanedPath)

		results = append(results, res)
		datasets = append(datasets, ds)
	}

	if len(datasets) == 0 {
		return results, datasets, ErrNoSources
	}

	return results, datasets, nil
}

func (p *Pipeline) normalizeSource(ctx context.Context, processor *normalizer.Processor, src config.SourceConfig, res *SourceResult) (*models.Dataset, error) {
	path, err := p.fetcher.Acquire(ctx, src, p.cfg.RawPath(src))
	if err != nil {
		return nil, err
	}

	res.RawPath = path

	ds, stats, err := processor.ProcessFile(path, src.ID, readOptions(src))
	if err != nil {
		return nil, err
	}

	res.Stats = stats

	return ds, nil
}

func readOptions(src config.SourceConfig) tabular.ReadOptions {
	return tabular.ReadOptions{
		Encoding:  src.Encoding,
		Sheet:     src.Sheet,
		Delimiter: src.DelimiterRune(),
	}
}

// previewPath returns the markdown review file next to the mapping table.
func previewPath(tablePath string) string {
	return strings.TrimSuffix(tablePath, filepath.Ext(tablePath)) + ".md"
}

// draftPath is used for a fresh draft when a reviewed table must not be overwritten.
func draftPath(tablePath string) string {
	return strings.TrimSuffix(tablePath, filepath.Ext(tablePath)) + ".draft" + filepath.Ext(tablePath)
}
