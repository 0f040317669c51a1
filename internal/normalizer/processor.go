// Package normalizer repairs raw per-source vendor exports into cleaned
// datasets: it finds the real header, drops blank rows, fills merged cells
// downwards and removes exact duplicate rows.
package normalizer

import (
	"fmt"

	"vendorrecon/internal/diag"
	"vendorrecon/internal/models"
	"vendorrecon/internal/tabular"
)

// Stats summarizes the repairs applied to one source.
type Stats struct {
	RawRows              int `json:"rawRows"`
	LeadingRowsDropped   int `json:"leadingRowsDropped"`
	BlankRowsRemoved     int `json:"blankRowsRemoved"`
	CellsFilled          int `json:"cellsFilled"`
	DuplicateRowsRemoved int `json:"duplicateRowsRemoved"`
	Rows                 int `json:"rows"`
}

// Processor runs the validator and transformer over a raw table.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	sink        diag.Sink
}

// NewProcessor creates a new processor reporting repairs to sink.
func NewProcessor(sink diag.Sink) *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
		sink:        sink,
	}
}

// ProcessFile reads a raw file and normalizes it. Read failures are returned
// with the path; an empty file yields an empty dataset.
func (p *Processor) ProcessFile(path, name string, opts tabular.ReadOptions) (*models.Dataset, Stats, error) {
	records, err := tabular.ReadRecords(path, opts)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read raw source %s: %w", path, err)
	}

	ds, stats := p.Process(name, records)

	return ds, stats, nil
}

// Process normalizes raw records belonging to the named source.
func (p *Processor) Process(name string, records [][]string) (*models.Dataset, Stats) {
	stats := Stats{RawRows: len(records)}

	headerIdx := p.transformer.FindHeader(records)
	if headerIdx < 0 {
		stats.LeadingRowsDropped = len(records)
		return models.NewDataset(name, nil), stats
	}

	stats.LeadingRowsDropped = headerIdx

	header, issues := p.validator.NormalizeHeader(records[headerIdx])
	for _, issue := range issues {
		diag.Warn(p.sink, diag.KindValidation, name, issue.Message, map[string]any{"column": issue.Column})
	}

	body := records[headerIdx+1:]
	for i, rec := range body {
		if issue := p.validator.CheckWidth(rec, len(header), headerIdx+i+2); issue != nil {
			diag.Warn(p.sink, diag.KindValidation, name, issue.Message, map[string]any{"row": issue.Row})
		}
	}

	ds := p.transformer.ParseRows(name, header, body)
	stats.BlankRowsRemoved = p.transformer.DropBlankRows(ds)
	stats.CellsFilled = p.transformer.ForwardFill(ds)
	stats.DuplicateRowsRemoved = p.transformer.DropDuplicateRows(ds)
	stats.Rows = ds.Len()

	diag.Info(p.sink, name, "raw source normalized", map[string]any{
		"rows":               stats.Rows,
		"leading_rows":       stats.LeadingRowsDropped,
		"blank_rows_removed": stats.BlankRowsRemoved,
		"cells_filled":       stats.CellsFilled,
		"duplicates_removed": stats.DuplicateRowsRemoved,
	})

	return ds, stats
}
