package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vendorrecon/internal/cleaner"
	"vendorrecon/internal/dedup"
)

// StandardizedSource records what the standardizer did to one source.
type StandardizedSource struct {
	ID            string   `json:"id"`
	Rows          int      `json:"rows"`
	HasIdentifier bool     `json:"hasIdentifier"`
	IDCountBefore int      `json:"idCountBefore"`
	IDCountAfter  int      `json:"idCountAfter"`
	Collisions    []string `json:"collisions,omitempty"`
	Unresolved    []string `json:"unresolvedCollisions,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Summary is written to run_summary.json at the end of the consolidate phase.
type Summary struct {
	RunID             string               `json:"runId"`
	StartedAt         time.Time            `json:"startedAt"`
	FinishedAt        time.Time            `json:"finishedAt"`
	MappingTable      string               `json:"mappingTable"`
	MappingReviewed   bool                 `json:"mappingReviewed"`
	Normalized        []SourceResult       `json:"normalized,omitempty"`
	Sources           []StandardizedSource `json:"sources"`
	ConsolidatedRows  int                  `json:"consolidatedRows"`
	CleanedRows       int                  `json:"cleanedRows"`
	DuplicatesRemoved int                  `json:"duplicatesRemoved"`
	Cleaning          cleaner.Stats        `json:"cleaning"`
	Duplicates        *dedup.Summary       `json:"duplicates,omitempty"`
	Outputs           map[string]string    `json:"outputs"`
	Warnings          int                  `json:"warnings"`
	Errors            int                  `json:"errors"`
}

// writeSummary saves s as indented JSON.
func writeSummary(path string, s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ReadSummary loads a run summary written by a previous run.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	return &s, nil
}
