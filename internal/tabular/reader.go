// Package tabular reads and writes the delimited-text and spreadsheet files
// exchanged by the pipeline. Every cell is treated as text.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"vendorrecon/internal/models"
)

// Reader errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownEncoding   = errors.New("unknown character encoding")
	ErrNoSheets          = errors.New("no sheets found in workbook")
)

// ReadOptions controls how raw files are decoded.
type ReadOptions struct {
	// Encoding is a WHATWG encoding label such as "windows-1252". Empty means UTF-8.
	Encoding string
	// Sheet selects a workbook sheet by name. Empty means the first sheet.
	Sheet string
	// Delimiter separates fields in text files. Zero means comma.
	Delimiter rune
}

// IsSpreadsheet reports whether path names an xlsx workbook.
func IsSpreadsheet(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}

// ReadRecords returns every row of the file as raw strings, including any
// title or blank rows before the real header.
func ReadRecords(path string, opts ReadOptions) ([][]string, error) {
	if IsSpreadsheet(path) {
		return readWorkbook(path, opts.Sheet)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".txt" && ext != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := DecodeRecords(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return records, nil
}

// DecodeRecords parses delimited text from r, decoding it from the
// configured character set and dropping a leading UTF-8 byte order mark.
func DecodeRecords(r io.Reader, opts ReadOptions) ([][]string, error) {
	decoder, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}

	return records, nil
}

func decoderFor(label string) (transform.Transformer, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return unicode.UTF8BOM.NewDecoder(), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, label)
	}

	return unicode.BOMOverride(enc.NewDecoder()), nil
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	if sheet == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSheets, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheet, err)
	}

	return rows, nil
}

// ReadDataset reads a file whose first row is the header, such as a cleaned
// per-source file or a consolidated table. Empty cells become null.
func ReadDataset(path, name string, opts ReadOptions) (*models.Dataset, error) {
	records, err := ReadRecords(path, opts)
	if err != nil {
		return nil, err
	}

	return FromRecords(name, records), nil
}

// FromRecords builds a dataset using records[0] as the header.
func FromRecords(name string, records [][]string) *models.Dataset {
	if len(records) == 0 {
		return models.NewDataset(name, nil)
	}

	ds := models.NewDataset(name, records[0])

	for _, rec := range records[1:] {
		row := make([]models.Cell, len(ds.Columns))
		for i := range row {
			if i < len(rec) {
				row[i] = models.FromRaw(rec[i])
			}
		}

		ds.Rows = append(ds.Rows, row)
	}

	return ds
}
