// Package formatter renders datasets and reports as aligned markdown tables.
package formatter

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"vendorrecon/internal/models"
	"vendorrecon/pkg/utils"
)

// DefaultCellWidth is the display width at which cells are truncated.
const DefaultCellWidth = 40

var strs = utils.NewStringHelper()

// Table renders header and rows as a markdown table with columns padded to
// a common display width. Cells wider than maxWidth are truncated; a
// non-positive maxWidth keeps them whole.
func Table(header []string, rows [][]string, maxWidth int) string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return ""
	}

	table := make([][]string, 0, len(rows)+1)
	table = append(table, cleanRow(header, colCount, maxWidth))

	for _, row := range rows {
		table = append(table, cleanRow(row, colCount, maxWidth))
	}

	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = 3
	}

	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	var sb strings.Builder

	writeRow(&sb, table[0], colWidths)

	sb.WriteString("|")

	for _, w := range colWidths {
		sb.WriteString(" " + strings.Repeat("-", w) + " |")
	}

	sb.WriteString("\n")

	for _, row := range table[1:] {
		writeRow(&sb, row, colWidths)
	}

	return sb.String()
}

func cleanRow(row []string, colCount, maxWidth int) []string {
	out := make([]string, colCount)

	for i := 0; i < len(row) && i < colCount; i++ {
		cell := strs.NormalizeWhitespace(row[i])
		cell = strings.ReplaceAll(cell, "|", `\|`)
		out[i] = strs.TruncateString(cell, maxWidth)
	}

	return out
}

func writeRow(sb *strings.Builder, row []string, widths []int) {
	sb.WriteString("|")

	for i, cell := range row {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(cell, widths[i]))
		sb.WriteString(" |")
	}

	sb.WriteString("\n")
}

// Dataset renders up to limit rows of ds. A non-positive limit renders all rows.
func Dataset(ds *models.Dataset, limit int) string {
	rows := ds.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	text := make([][]string, len(rows))
	for i, row := range rows {
		text[i] = make([]string, len(row))
		for j, c := range row {
			text[i][j] = c.String()
		}
	}

	out := Table(ds.Columns, text, DefaultCellWidth)
	if limit > 0 && ds.Len() > limit {
		out += fmt.Sprintf("\n_%d of %d rows shown_\n", limit, ds.Len())
	}

	return out
}

// MappingPreview renders the mapping table for human review, grouped by
// source, with the number of entries still Unmapped.
func MappingPreview(table *models.MappingTable) string {
	var sb strings.Builder

	sb.WriteString("# Mapping table review\n\n")
	sb.WriteString("Set each `Standard Field` to a standard field name or `Unmapped`, then sign the table.\n")

	for _, source := range table.Sources() {
		entries := table.ForSource(source)
		rows := make([][]string, len(entries))
		unmapped := 0

		for i, e := range entries {
			rows[i] = []string{e.SourceField, e.StandardField, e.Sample.String()}

			if !e.IsMapped() {
				unmapped++
			}
		}

		fmt.Fprintf(&sb, "\n## %s\n\n", source)

		if !table.HasIdentifier(source) {
			fmt.Fprintf(&sb, "> no column mapped to `%s`\n\n", models.IdentifierField)
		}

		sb.WriteString(Table([]string{"Source Field", "Standard Field", "Sample Data"}, rows, DefaultCellWidth))
		fmt.Fprintf(&sb, "\n%d of %d columns unmapped\n", unmapped, len(entries))
	}

	return sb.String()
}

// KeyValues renders ordered label/value pairs as a two-column table.
func KeyValues(header [2]string, pairs [][2]string) string {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}

	return Table(header[:], rows, 0)
}
