package query

import (
	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/schema"
)

// Queryable is a table-like thing with named column projections.
type Queryable interface {
	// Name is the logical table the data ultimately comes from.
	Name() string
	// Source is the Queryable this one reads from; nil for a base table.
	Source() Queryable
	ColumnProjection(name string) (ColumnProjection, bool)
	ColumnProjections() []ColumnProjection
	Filter() filter.Expression
}

// Table is a schema table used as a query source.
type Table struct {
	Def *schema.Table
}

// NewTable wraps a schema table.
func NewTable(def *schema.Table) Table {
	return Table{Def: def}
}

func (t Table) Name() string              { return t.Def.Name }
func (t Table) Source() Queryable         { return nil }
func (t Table) Filter() filter.Expression { return nil }

// ColumnProjection returns the field of that name as a dimension.
func (t Table) ColumnProjection(name string) (ColumnProjection, bool) {
	f, ok := t.Def.Field(name)
	if !ok {
		return nil, false
	}
	return FieldDimension(f), true
}

// ColumnProjections lists every field as a dimension.
func (t Table) ColumnProjections() []ColumnProjection {
	out := make([]ColumnProjection, 0, len(t.Def.Fields))
	for _, f := range t.Def.Fields {
		out = append(out, FieldDimension(f))
	}
	return out
}

// Query reads metrics and dimensions from a source, filtered by Where.
// Dimensions are grouped by; metrics are aggregated per group.
type Query struct {
	From       Queryable
	Metrics    []ColumnProjection
	Dimensions []ColumnProjection
	Where      filter.Expression
}

// Name is the name of the base table behind the query.
func (q Query) Name() string {
	if q.From == nil {
		return ""
	}
	return q.From.Name()
}

func (q Query) Source() Queryable         { return q.From }
func (q Query) Filter() filter.Expression { return q.Where }

// ColumnProjections lists dimensions then metrics.
func (q Query) ColumnProjections() []ColumnProjection {
	out := make([]ColumnProjection, 0, len(q.Dimensions)+len(q.Metrics))
	out = append(out, q.Dimensions...)
	return append(out, q.Metrics...)
}

// ColumnProjection returns the dimension or metric with that name.
func (q Query) ColumnProjection(name string) (ColumnProjection, bool) {
	for _, c := range q.ColumnProjections() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// BaseTable walks Source links down to the schema table.
func BaseTable(q Queryable) (Table, bool) {
	for q != nil {
		if t, ok := q.(Table); ok {
			return t, true
		}
		q = q.Source()
	}
	return Table{}, false
}
