// Package fixtures generates synthetic raw vendor exports with the quirks
// found in real national extracts: title rows above the header, merged cells
// left blank, repeated rows and repeated vendor ids.
package fixtures

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"

	"vendorrecon/internal/config"
	"vendorrecon/internal/models"
	"vendorrecon/internal/tabular"
)

// Options controls generation.
type Options struct {
	Dir           string
	Rows          int
	Seed          int64
	DuplicateRate float64
}

// layout describes one national export.
type layout struct {
	id      string
	country string
	columns []string
	title   bool
}

var layouts = []layout{
	{
		id:      "BE.csv",
		country: "Belgium",
		columns: []string{"Vendor ID", "Vendor name", "Address", "ZIP", "City", "Country", "VAT Code", "IBAN", "BIC", "Currency", "Vendor Group"},
		title:   true,
	},
	{
		id:      "CH.csv",
		country: "Switzerland",
		columns: []string{"Vendor Number", "Name", "Company Address", "Postcode", "City", "Email", "VAT-No", "Bank Name", "Currency code", "Internal memo"},
	},
	{
		id:      "NO.xlsx",
		country: "Norway",
		columns: []string{"Vendor identifier", "Vendor Name", "Address", "ZIP/postcode", "Country", "Norwegian Bankgiro Number", "Owner", "Payment terms"},
	},
}

// Generate writes one raw export per layout into opts.Dir and returns the
// matching source configuration.
func Generate(opts Options) ([]config.SourceConfig, error) {
	if opts.Rows <= 0 {
		opts.Rows = 20
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	faker := gofakeit.New(opts.Seed)

	sources := make([]config.SourceConfig, 0, len(layouts))

	for _, l := range layouts {
		ds := generate(faker, l, opts)
		path := filepath.Join(opts.Dir, l.id)

		var err error
		if tabular.IsSpreadsheet(path) {
			err = tabular.WriteWorkbook(path, ds)
		} else {
			err = writeRawCSV(path, ds, l.title)
		}

		if err != nil {
			return nil, fmt.Errorf("source %s: %w", l.id, err)
		}

		sources = append(sources, config.SourceConfig{ID: l.id, File: path, Enabled: true})
	}

	return sources, nil
}

func generate(f *gofakeit.Faker, l layout, opts Options) *models.Dataset {
	ds := models.NewDataset(l.id, l.columns)
	group := ""

	for i := 0; i < opts.Rows; i++ {
		if i > 0 && f.Float64() < opts.DuplicateRate {
			prev := ds.Rows[f.Number(0, ds.Len()-1)]
			dup := append([]models.Cell(nil), prev...)

			// same vendor, different spelling of its name
			if f.Bool() {
				dup[1] = models.Text(f.Company())
			}

			ds.Rows = append(ds.Rows, dup)

			continue
		}

		addr := f.Address()
		row := make([]models.Cell, len(l.columns))

		for j, col := range l.columns {
			row[j] = models.FromRaw(value(f, col, l, i, addr))
		}

		// merged group cells surface as blanks under the first row of a block
		if col := indexOf(l.columns, "Vendor Group"); col >= 0 {
			if i%4 == 0 {
				group = f.RandomString([]string{"Services", "Hardware", "Logistics", "Consulting"})
				row[col] = models.Text(group)
			} else {
				row[col] = models.Null()
			}
		}

		ds.Rows = append(ds.Rows, row)
	}

	return ds
}

func value(f *gofakeit.Faker, col string, l layout, i int, addr *gofakeit.AddressInfo) string {
	switch col {
	case "Vendor ID", "Vendor Number", "Vendor identifier":
		format := f.RandomString([]string{"V-%05d", "V %05d", "V%05d "})
		return fmt.Sprintf(format, 1000+i)
	case "Vendor name", "Name", "Vendor Name":
		return f.Company()
	case "Address", "Company Address":
		return addr.Street
	case "ZIP", "Postcode", "ZIP/postcode":
		return addr.Zip
	case "City":
		return addr.City
	case "Country":
		return l.country
	case "Email":
		return f.Email()
	case "VAT Code", "VAT-No":
		return f.Numerify(l.id[:2] + " #### ### ###")
	case "IBAN":
		return f.Numerify(l.id[:2] + "## #### #### ####")
	case "BIC":
		return f.Lexify("????") + l.id[:2] + "BB"
	case "Currency", "Currency code":
		return f.RandomString([]string{"EUR", "CHF", "NOK", "USD"})
	case "Bank Name":
		return f.Company() + " Bank"
	case "Norwegian Bankgiro Number":
		return f.Numerify("####.##.#####")
	case "Owner":
		return f.Name()
	case "Payment terms":
		return f.RandomString([]string{"30 days", "45 days", "60 days", ""})
	case "Internal memo":
		if f.Bool() {
			return f.Sentence(4)
		}

		return ""
	}

	return ""
}

// writeRawCSV writes ds the way a spreadsheet export would, optionally with
// a title and a blank row above the header.
func writeRawCSV(path string, ds *models.Dataset, title bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	blank := make([]string, len(ds.Columns))

	if title {
		if err := w.Write(blank); err != nil {
			return err
		}

		if err := w.Write(blank); err != nil {
			return err
		}
	}

	if err := w.Write(ds.Columns); err != nil {
		return err
	}

	for _, row := range ds.Rows {
		rec := make([]string, len(row))
		for i, c := range row {
			rec[i] = c.String()
		}

		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}

	return -1
}
