package formatter

import (
	"strings"
	"testing"

	"vendorrecon/internal/models"
)

func TestTable(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		maxWidth int
		expected string
	}{
		{
			name:   "Basic table formatting",
			header: []string{"Header 1", "Header 2"},
			rows:   [][]string{{"val 1", "val 2"}},
			expected: `| Header 1 | Header 2 |
| -------- | -------- |
| val 1    | val 2    |
`,
		},
		{
			name:   "Minimum width",
			header: []string{"H1", "H2"},
			rows:   [][]string{{"v1", "v2"}},
			expected: `| H1  | H2  |
| --- | --- |
| v1  | v2  |
`,
		},
		{
			name:   "Mixed CJK and ASCII",
			header: []string{"Field", "Sample"},
			rows:   [][]string{{"名称", "x"}, {"Vendor name", "y"}},
			expected: `| Field       | Sample |
| ----------- | ------ |
| 名称        | x      |
| Vendor name | y      |
`,
		},
		{
			name:     "Truncation, pipes and short rows",
			header:   []string{"A", "B"},
			rows:     [][]string{{"abcdefghij", "a|b"}, {"x"}},
			maxWidth: 6,
			expected: `| A      | B    |
| ------ | ---- |
| abc... | a\|b |
| x      |      |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Table(tt.header, tt.rows, tt.maxWidth)
			if got != tt.expected {
				t.Errorf("Table() mismatch:\ngot:\n%s\nwant:\n%s", got, tt.expected)
			}
		})
	}
}

func TestTable_Empty(t *testing.T) {
	if got := Table(nil, nil, 0); got != "" {
		t.Errorf("Table() = %q, want empty", got)
	}
}

func TestDataset_Limit(t *testing.T) {
	ds := models.NewDataset("x", []string{"vendor_id"})
	for _, id := range []string{"V1", "V2", "V3"} {
		ds.AppendRow([]models.Cell{models.Text(id)})
	}

	ds.AppendRow([]models.Cell{models.Null()})

	got := Dataset(ds, 2)
	if !strings.Contains(got, "| V2        |") || strings.Contains(got, "V3") {
		t.Errorf("Dataset() did not limit rows:\n%s", got)
	}

	if !strings.Contains(got, "_2 of 4 rows shown_") {
		t.Errorf("Dataset() missing row note:\n%s", got)
	}
}

func TestMappingPreview(t *testing.T) {
	table := &models.MappingTable{Entries: []models.MappingEntry{
		{Source: "BE.csv", SourceField: "Vendor ID", StandardField: "vendor_id", Sample: models.Text("V1")},
		{Source: "BE.csv", SourceField: "Memo", StandardField: models.Unmapped},
		{Source: "NO.csv", SourceField: "Navn", StandardField: "vendor_name", Sample: models.Text("Nordic AS")},
	}}

	got := MappingPreview(table)

	for _, want := range []string{
		"## BE.csv",
		"| Vendor ID    | vendor_id      | V1          |",
		"1 of 2 columns unmapped",
		"## NO.csv",
		"> no column mapped to `vendor_id`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("MappingPreview() missing %q:\n%s", want, got)
		}
	}
}

func TestKeyValues(t *testing.T) {
	got := KeyValues([2]string{"Metric", "Value"}, [][2]string{{"total_rows", "4"}})
	expected := `| Metric     | Value |
| ---------- | ----- |
| total_rows | 4     |
`

	if got != expected {
		t.Errorf("KeyValues() = \n%s\nwant\n%s", got, expected)
	}
}
