// Package cleaner applies per-field cleaning rules to a consolidated dataset.
package cleaner

import (
	"fmt"

	"vendorrecon/internal/diag"
	"vendorrecon/internal/models"
)

// FieldRule binds a rule to a column.
type FieldRule struct {
	Field string
	Name  string
	Rule  Rule
}

// Stats reports the identifier column before and after cleaning.
type Stats struct {
	IDCountBefore int `json:"idCountBefore"`
	IDCountAfter  int `json:"idCountAfter"`
	BlankIDs      int `json:"blankIds"`
}

// Resolve turns (field, rule name) pairs into field rules.
func Resolve(pairs [][2]string) ([]FieldRule, error) {
	rules := make([]FieldRule, 0, len(pairs))

	for _, p := range pairs {
		rule, err := Lookup(p[1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", p[0], err)
		}

		rules = append(rules, FieldRule{Field: p[0], Name: p[1], Rule: rule})
	}

	return rules, nil
}

// Clean returns a copy of ds with each rule applied to its column. Rules for
// absent columns are skipped. Repeated rules for a field apply in order.
func Clean(ds *models.Dataset, rules []FieldRule, sink diag.Sink) (*models.Dataset, Stats) {
	out := ds.Clone()

	var stats Stats

	stats.IDCountBefore = out.NonNullCount(models.IdentifierField)

	for _, fr := range rules {
		idx := out.ColumnIndex(fr.Field)
		if idx < 0 {
			diag.Info(sink, "", fmt.Sprintf("column %s not present, rule %s skipped", fr.Field, fr.Name), nil)

			continue
		}

		for _, row := range out.Rows {
			row[idx] = fr.Rule(row[idx])
		}
	}

	if idx := out.ColumnIndex(models.IdentifierField); idx >= 0 {
		for _, row := range out.Rows {
			c := row[idx]
			if c.Valid && c.Value == "" {
				stats.BlankIDs++
			}
		}
	}

	stats.IDCountAfter = out.NonNullCount(models.IdentifierField)

	diag.Info(sink, "", "identifier values after cleaning", map[string]any{
		"before": stats.IDCountBefore,
		"after":  stats.IDCountAfter,
	})

	if stats.BlankIDs > 0 {
		diag.Warn(sink, diag.KindValidation, "",
			fmt.Sprintf("%d %s values are blank after cleaning", stats.BlankIDs, models.IdentifierField),
			map[string]any{"blank": stats.BlankIDs})
	}

	return out, stats
}
