package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"vendorrecon/internal/models"
)

// WriteDataset writes ds as comma-delimited UTF-8 text with a header row,
// creating parent directories as needed. Nulls are written as empty cells.
func WriteDataset(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := EncodeDataset(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}

// EncodeDataset serializes ds as delimited text to w.
func EncodeDataset(w io.Writer, ds *models.Dataset) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ds.Columns); err != nil {
		return err
	}

	record := make([]string, len(ds.Columns))

	for _, row := range ds.Rows {
		for i, c := range row {
			record[i] = c.String()
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteWorkbook writes each dataset to its own sheet of an xlsx workbook.
// Sheet names come from the dataset names.
func WriteWorkbook(path string, sheets ...*models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, ds := range sheets {
		name := sheetName(ds.Name, i)

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, ds, headerStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	return nil
}

func writeSheet(f *excelize.File, sheet string, ds *models.Dataset, headerStyle int) error {
	header := make([]interface{}, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of sheet %q: %w", sheet, err)
	}

	if len(ds.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(ds.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of sheet %q: %w", sheet, err)
		}
	}

	for r, row := range ds.Rows {
		values := make([]interface{}, len(row))
		for i, c := range row {
			if c.Valid {
				values[i] = c.Value
			}
		}

		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %q: %w", r+1, sheet, err)
		}
	}

	return nil
}

// sheetName trims a dataset name to the 31 characters a sheet name allows.
func sheetName(name string, index int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}

	runes := []rune(name)
	if len(runes) > 31 {
		runes = runes[:31]
	}

	return string(runes)
}
