package query

import (
	"slices"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/schema"
)

// Argument is a value bound to a column parameter.
type Argument struct {
	Name  string
	Value ir.IRValue
}

// SortArguments returns args ordered by name.
func SortArguments(args []Argument) []Argument {
	out := slices.Clone(args)
	slices.SortFunc(out, func(a, b Argument) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ColumnProjection is a requested output column of a query.
type ColumnProjection interface {
	Name() string
	Alias() string
	// SafeAlias is the identifier the column is selected as.
	SafeAlias() string
	// Expression is a SQL fragment with templated references.
	Expression() string
	ValueType() schema.ValueType
	ColumnType() schema.ColumnType
	// Arguments are sorted by name.
	Arguments() []Argument
	// Projected reports whether the column is selected, as opposed to
	// existing only to support joins or filters.
	Projected() bool
}

// Nestable columns can be computed in an inner query and re-expressed over
// its result in an outer query.
type Nestable interface {
	ColumnProjection
	CanNest() bool
	OuterQuery(source Queryable, joinInOuter bool) (ColumnProjection, error)
	InnerQuery(source Queryable, joinInOuter bool) ([]ColumnProjection, error)
}

// SafeAlias derives a SQL identifier from alias, falling back to name.
func SafeAlias(name, alias string) string {
	if alias == "" {
		return schema.SafeIdent(name)
	}
	return schema.SafeIdent(alias)
}

// Dimension is a non-aggregated column, grouped by in the owning query.
type Dimension struct {
	name       string
	alias      string
	expression string
	valueType  schema.ValueType
	columnType schema.ColumnType
	projected  bool
}

// NewDimension builds a projected dimension over expression.
func NewDimension(name, expression string, vt schema.ValueType) Dimension {
	return Dimension{
		name:       name,
		expression: expression,
		valueType:  vt,
		columnType: schema.ColumnFormula,
		projected:  true,
	}
}

// FieldDimension builds a dimension from a schema field.
// The expression is {{name}}, so joins resolve through the catalog.
func FieldDimension(f schema.Field) Dimension {
	d := NewDimension(f.Name, schema.Ref(f.Name), f.Type)
	d.columnType = f.ColumnType()
	return d
}

func (d Dimension) Name() string                  { return d.name }
func (d Dimension) Alias() string                 { return d.alias }
func (d Dimension) SafeAlias() string             { return SafeAlias(d.name, d.alias) }
func (d Dimension) Expression() string            { return d.expression }
func (d Dimension) ValueType() schema.ValueType   { return d.valueType }
func (d Dimension) ColumnType() schema.ColumnType { return d.columnType }
func (d Dimension) Arguments() []Argument         { return nil }
func (d Dimension) Projected() bool               { return d.projected }

// WithAlias returns a copy selected under alias.
func (d Dimension) WithAlias(alias string) Dimension {
	d.alias = alias
	return d
}

// WithExpression returns a copy computing expr.
func (d Dimension) WithExpression(expr string) Dimension {
	d.expression = expr
	return d
}

// WithProjected returns a copy with the projected flag set.
func (d Dimension) WithProjected(projected bool) Dimension {
	d.projected = projected
	return d
}
