package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dataset is a set of tables to load into a Store.
type Dataset struct {
	Tables []TableData `yaml:"tables"`
}

// TableData is one table of a Dataset. Rows hold values in column order.
type TableData struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Column declares a column name and its SQLite type (default TEXT).
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ReadDataset parses a YAML dataset file. Unknown keys are rejected.
func ReadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(ds.Tables) == 0 {
		return Dataset{}, fmt.Errorf("parse dataset %s: no tables", path)
	}
	return ds, nil
}

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typePattern  = regexp.MustCompile(`^[A-Za-z]+$`)
)

// LoadDataset replaces the dataset's tables and inserts their rows in one
// transaction. Existing tables with the same names are dropped.
func (s *Store) LoadDataset(ctx context.Context, ds Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	defer tx.Rollback()

	for _, t := range ds.Tables {
		ddl, insert, err := tableStatements(t)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+t.Name+`"`); err != nil {
			return fmt.Errorf("load dataset: drop %s: %w", t.Name, err)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("load dataset: create %s: %w", t.Name, err)
		}

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("load dataset: prepare %s: %w", t.Name, err)
		}
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				stmt.Close()
				return fmt.Errorf("load dataset: %s row %d has %d values, want %d", t.Name, i, len(row), len(t.Columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return fmt.Errorf("load dataset: %s row %d: %w", t.Name, i, err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load dataset: commit: %w", err)
	}
	return nil
}

// tableStatements builds CREATE TABLE and INSERT statements for t.
// Names are checked against a strict identifier pattern because DDL cannot
// be parameterized.
func tableStatements(t TableData) (ddl, insert string, err error) {
	if !identPattern.MatchString(t.Name) {
		return "", "", fmt.Errorf("invalid table name %q", t.Name)
	}
	if len(t.Columns) == 0 {
		return "", "", fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if !identPattern.MatchString(c.Name) {
			return "", "", fmt.Errorf("table %s: invalid column name %q", t.Name, c.Name)
		}
		typ := c.Type
		if typ == "" {
			typ = "TEXT"
		}
		if !typePattern.MatchString(typ) {
			return "", "", fmt.Errorf("table %s: invalid column type %q", t.Name, typ)
		}
		defs[i] = fmt.Sprintf(`"%s" %s`, c.Name, strings.ToUpper(typ))
		names[i] = `"` + c.Name + `"`
		marks[i] = "?"
	}

	ddl = fmt.Sprintf(`CREATE TABLE "%s" (%s)`, t.Name, strings.Join(defs, ", "))
	insert = fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, t.Name, strings.Join(names, ", "), strings.Join(marks, ", "))
	return ddl, insert, nil
}
