// Package validator checks a reviewed mapping table before it is signed and
// applied to the source datasets.
package validator

import (
	"fmt"
	"sort"

	"vendorrecon/internal/config"
	"vendorrecon/internal/models"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Source      string
	SourceField string
	Message     string
	Row         int
}

func (e ValidationError) String() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d (%s/%s): %s", e.Row, e.Source, e.SourceField, e.Message)
	}

	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}

	return e.Message
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	TotalEntries             int
	MappedEntries            int
	UnmappedEntries          int
	Sources                  int
	SourcesWithoutIdentifier int
}

// MappingValidator validates a mapping table against the configuration.
type MappingValidator struct {
	catalog       *models.FieldCatalog
	sources       []string
	allowUnmapped bool
}

// NewMappingValidator creates a validator for the configured sources and
// standard fields.
func NewMappingValidator(cfg *config.Config) *MappingValidator {
	v := &MappingValidator{
		catalog:       cfg.FieldCatalog(),
		allowUnmapped: cfg.Mapping.AllowUnmapped,
	}

	for _, src := range cfg.GetEnabledSources() {
		v.sources = append(v.sources, src.ID)
	}

	return v
}

// Validate checks the table. Structural problems (duplicate entries,
// unknown standard fields, configured sources with no entries, and Unmapped
// entries when they are not allowed) are errors. Sources lacking an
// identifier mapping and predicted column collisions are warnings, since the
// pipeline tolerates both.
func (v *MappingValidator) Validate(table *models.MappingTable) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	type key struct{ source, field string }

	seen := make(map[key]int, len(table.Entries))
	targets := make(map[key][]string)
	unmappedNames := make(map[key]bool)

	for i, e := range table.Entries {
		row := i + 2
		result.Stats.TotalEntries++

		k := key{e.Source, e.SourceField}
		if first, dup := seen[k]; dup {
			result.addError(ValidationError{
				Row: row, Source: e.Source, SourceField: e.SourceField,
				Message: fmt.Sprintf("duplicate of row %d", first),
			})

			continue
		}

		seen[k] = row

		if !e.IsMapped() {
			result.Stats.UnmappedEntries++
			unmappedNames[k] = true

			if !v.allowUnmapped {
				result.addError(ValidationError{
					Row: row, Source: e.Source, SourceField: e.SourceField,
					Message: "still Unmapped; assign a standard field",
				})
			}

			continue
		}

		if !v.catalog.IsStandard(e.StandardField) {
			result.addError(ValidationError{
				Row: row, Source: e.Source, SourceField: e.SourceField,
				Message: fmt.Sprintf("unknown standard field %q", e.StandardField),
			})

			continue
		}

		result.Stats.MappedEntries++

		tk := key{e.Source, e.StandardField}
		targets[tk] = append(targets[tk], e.SourceField)
	}

	tableSources := table.Sources()
	result.Stats.Sources = len(tableSources)

	for _, src := range tableSources {
		if !table.HasIdentifier(src) {
			result.Stats.SourcesWithoutIdentifier++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: no column mapped to %s; its rows will lack an identifier", src, models.IdentifierField))
		}
	}

	v.checkSources(result, tableSources)

	collisions := make([]string, 0)

	// An Unmapped column keeps its name, so one already named like a
	// mapped target collides with it too.
	for tk, fields := range targets {
		switch {
		case unmappedNames[tk]:
			collisions = append(collisions, fmt.Sprintf(
				"%s: %d columns map to %s (including unmapped column %q) and will be renamed with positional suffixes",
				tk.source, len(fields)+1, tk.field, tk.field))
		case len(fields) > 1:
			collisions = append(collisions, fmt.Sprintf(
				"%s: %d columns map to %s and will be renamed with positional suffixes", tk.source, len(fields), tk.field))
		}
	}

	sort.Strings(collisions)
	result.Warnings = append(result.Warnings, collisions...)

	return result
}

func (v *MappingValidator) checkSources(result *ValidationResult, tableSources []string) {
	inTable := make(map[string]bool, len(tableSources))
	for _, s := range tableSources {
		inTable[s] = true
	}

	configured := make(map[string]bool, len(v.sources))

	for _, s := range v.sources {
		configured[s] = true

		if !inTable[s] {
			result.addError(ValidationError{Source: s, Message: "configured source has no mapping entries"})
		}
	}

	for _, s := range tableSources {
		if len(v.sources) > 0 && !configured[s] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: entries for a source that is not configured", s))
		}
	}
}

func (r *ValidationResult) addError(e ValidationError) {
	r.IsValid = false
	r.Errors = append(r.Errors, e)
}
