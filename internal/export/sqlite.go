// Package export writes output datasets to a sqlite database for downstream
// analysis.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"vendorrecon/internal/models"
)

// Exporter writes datasets as sqlite tables.
type Exporter struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Exporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	return &Exporter{db: db}, nil
}

// DB exposes the underlying handle.
func (e *Exporter) DB() *sqlx.DB {
	return e.db
}

// Close closes the database.
func (e *Exporter) Close() error {
	return e.db.Close()
}

// WriteTables replaces one table per dataset, named after the dataset, in a
// single transaction. Every column is TEXT; null cells become NULL.
func (e *Exporter) WriteTables(ctx context.Context, datasets ...*models.Dataset) (err error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, ds := range datasets {
		if err = writeTable(ctx, tx, ds); err != nil {
			return fmt.Errorf("table %s: %w", ds.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func writeTable(ctx context.Context, tx *sqlx.Tx, ds *models.Dataset) error {
	table := quoteIdent(ds.Name)
	columns := ColumnNames(ds.Columns)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}

	defs := make([]string, len(columns))
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))

	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		defs[i] = quoted[i] + " TEXT"
		marks[i] = "?"
	}

	if len(columns) == 0 {
		return nil
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PreparexContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	args := make([]any, len(columns))

	for _, row := range ds.Rows {
		for i, c := range row {
			if c.Valid {
				args[i] = c.Value
			} else {
				args[i] = nil
			}
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return nil
}

// ColumnNames makes names usable as sqlite columns, which compare
// case-insensitively: later names that clash get a numeric suffix.
func ColumnNames(columns []string) []string {
	out := make([]string, len(columns))
	used := make(map[string]bool, len(columns))

	for i, col := range columns {
		name := col
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}

		candidate := name
		for n := 1; used[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}

		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}

	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
