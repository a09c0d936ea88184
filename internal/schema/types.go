package schema

import (
	"fmt"
	"strings"
)

// ValueType is the logical type of a column value.
type ValueType string

const (
	TypeText    ValueType = "TEXT"
	TypeInteger ValueType = "INTEGER"
	TypeDecimal ValueType = "DECIMAL"
	TypeBoolean ValueType = "BOOLEAN"
	TypeTime    ValueType = "TIME"
	TypeID      ValueType = "ID"
)

var valueTypes = []ValueType{TypeText, TypeInteger, TypeDecimal, TypeBoolean, TypeTime, TypeID}

// ParseValueType parses a value type name case-insensitively.
// An empty name defaults to TEXT.
func ParseValueType(s string) (ValueType, error) {
	if s == "" {
		return TypeText, nil
	}
	for _, vt := range valueTypes {
		if strings.EqualFold(s, string(vt)) {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown value type %q", s)
}

// ColumnType says how a column is computed.
type ColumnType string

const (
	// ColumnField columns read a single physical column.
	ColumnField ColumnType = "FIELD"
	// ColumnFormula columns compute an expression over other columns.
	ColumnFormula ColumnType = "FORMULA"
)

// Field is a logical, non-aggregated column of a table.
type Field struct {
	Name       string
	Type       ValueType
	Expression string // Defaults to {{$Name}}
}

// ColumnType reports FIELD when the expression is a bare physical column.
func (f Field) ColumnType() ColumnType {
	refs := References(f.Expression)
	if len(refs) == 1 && refs[0].Kind == RefColumn && strings.TrimSpace(f.Expression) == refs[0].Raw {
		return ColumnField
	}
	return ColumnFormula
}

// Metric is an aggregated column of a table.
type Metric struct {
	Name       string
	Type       ValueType
	Expression string // e.g. SUM({{amount}})
}

// Join links a table to another through an equality on one key.
//
// From names a logical field of the owning table; To names a physical
// column of the joined table.
type Join struct {
	Name  string
	Table string
	From  string
	To    string
}

// Table is a logical table.
type Table struct {
	Name     string
	Physical string // Defaults to Name
	Fields   []Field
	Metrics  []Metric
	Joins    []Join
}

// Field returns the named field.
func (t *Table) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Metric returns the named metric.
func (t *Table) Metric(name string) (Metric, bool) {
	for _, m := range t.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Join returns the named join.
func (t *Table) Join(name string) (Join, bool) {
	for _, j := range t.Joins {
		if j.Name == name {
			return j, true
		}
	}
	return Join{}, false
}
