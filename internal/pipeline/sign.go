package pipeline

import (
	"fmt"

	"vendorrecon/internal/mapping"
	"vendorrecon/internal/validator"
	"vendorrecon/pkg/metadata"
)

// Sign validates the reviewed mapping table and, when it passes, rewrites its
// signature as reviewed. The validation result is returned either way.
func (p *Pipeline) Sign(reviewer string) (*validator.ValidationResult, error) {
	path := p.cfg.MappingTablePath()

	table, err := mapping.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMappingTable, err)
	}

	result := validator.NewMappingValidator(p.cfg).Validate(table)

	for _, w := range result.Warnings {
		p.log.Warn("Mapping review warning", "detail", w)
	}

	if !result.IsValid {
		for _, e := range result.Errors {
			p.log.Error("Mapping review error", "detail", e.String())
		}

		return result, fmt.Errorf("%w: %d errors", ErrInvalidMapping, len(result.Errors))
	}

	if _, err := metadata.SignFile(path, true, Version, reviewer); err != nil {
		return result, fmt.Errorf("failed to sign mapping table: %w", err)
	}

	p.log.Info("Mapping table signed as reviewed", "path", path, "entries", result.Stats.TotalEntries)

	return result, nil
}
