package normalizer

import (
	"fmt"
	"strconv"
	"strings"
)

// Issue describes a structural problem found in a raw file that was
// repaired rather than rejected.
type Issue struct {
	Message string
	Row     int
	Column  int
}

// Validator checks raw header and row shapes.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// NormalizeHeader makes every header cell addressable: blank cells become
// "Unnamed: <index>" and repeated names get ".1", ".2", ... suffixes.
func (v *Validator) NormalizeHeader(raw []string) ([]string, []Issue) {
	var issues []Issue

	header := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))

	for i, name := range raw {
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
			issues = append(issues, Issue{Column: i, Message: "blank header cell renamed to " + strconv.Quote(name)})
		}

		if taken[name] {
			base := name
			for n := 1; taken[name]; n++ {
				name = base + "." + strconv.Itoa(n)
			}

			issues = append(issues, Issue{Column: i, Message: fmt.Sprintf("repeated header %q renamed to %q", base, name)})
		}

		taken[name] = true
		header[i] = name
	}

	return header, issues
}

// CheckWidth reports a row carrying more cells than the header has columns.
// Shorter rows are fine: missing cells are null.
func (v *Validator) CheckWidth(row []string, width, rowNum int) *Issue {
	if len(row) <= width {
		return nil
	}

	for _, extra := range row[width:] {
		if strings.TrimSpace(extra) != "" {
			return &Issue{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d cells but header has %d; extra cells dropped", len(row), width),
			}
		}
	}

	return nil
}
