package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/schema"
)

func ordersTable() Table {
	return NewTable(&schema.Table{
		Name:     "orders",
		Physical: "orders",
		Fields: []schema.Field{
			{Name: "region", Type: schema.TypeText, Expression: "{{$region}}"},
			{Name: "big", Type: schema.TypeBoolean, Expression: "{{$amount}} > 100"},
		},
	})
}

func TestSafeAlias(t *testing.T) {
	assert.Equal(t, "revenue", SafeAlias("revenue", ""))
	assert.Equal(t, "total", SafeAlias("revenue", "total"))
	assert.Equal(t, "total_revenue__", SafeAlias("revenue", "total revenue()"))
}

func TestTableProjections(t *testing.T) {
	table := ordersTable()
	assert.Equal(t, "orders", table.Name())
	assert.Nil(t, table.Source())
	assert.Nil(t, table.Filter())

	region, ok := table.ColumnProjection("region")
	require.True(t, ok)
	assert.Equal(t, "{{region}}", region.Expression())
	assert.Equal(t, schema.ColumnField, region.ColumnType())
	assert.True(t, region.Projected())

	big, _ := table.ColumnProjection("big")
	assert.Equal(t, schema.ColumnFormula, big.ColumnType())

	_, ok = table.ColumnProjection("missing")
	assert.False(t, ok)
	assert.Len(t, table.ColumnProjections(), 2)
}

func TestQueryLookup(t *testing.T) {
	table := ordersTable()
	region, _ := table.ColumnProjection("region")
	where := filter.NewPredicate("orders", "region", filter.OpIn, ir.IRString("EU"))
	q := Query{From: table, Dimensions: []ColumnProjection{region}, Where: where}

	assert.Equal(t, "orders", q.Name())
	assert.Equal(t, table, q.Source())
	assert.True(t, filter.Equal(where, q.Filter()))

	got, ok := q.ColumnProjection("region")
	require.True(t, ok)
	assert.Equal(t, "region", got.Name())

	_, ok = q.ColumnProjection("big")
	assert.False(t, ok)

	base, ok := BaseTable(Query{From: q})
	require.True(t, ok)
	assert.Equal(t, "orders", base.Name())

	_, ok = BaseTable(Query{})
	assert.False(t, ok)
	assert.Equal(t, "", Query{}.Name())
}

func TestDimensionCopies(t *testing.T) {
	d := NewDimension("region", "{{region}}", schema.TypeText)
	hidden := d.WithProjected(false).WithAlias("r").WithExpression("{{x}}")

	assert.True(t, d.Projected())
	assert.Equal(t, "region", d.SafeAlias())
	assert.False(t, hidden.Projected())
	assert.Equal(t, "r", hidden.SafeAlias())
	assert.Equal(t, "{{x}}", hidden.Expression())
	assert.Nil(t, hidden.Arguments())
}

func TestSortArguments(t *testing.T) {
	args := []Argument{{Name: "b"}, {Name: "a"}}
	sorted := SortArguments(args)
	assert.Equal(t, "a", sorted[0].Name)
	assert.Equal(t, "b", args[0].Name, "input untouched")
}

func TestPlanIDIsStructural(t *testing.T) {
	table := ordersTable()
	region, _ := table.ColumnProjection("region")
	build := func(value string) *Plan {
		p, err := NewFlatPlan(Query{
			From:       table,
			Dimensions: []ColumnProjection{region},
			Where:      filter.NewPredicate("orders", "region", filter.OpIn, ir.IRString(value)),
		})
		require.NoError(t, err)
		return p
	}

	a, b, c := build("EU"), build("EU"), build("US")
	assert.Len(t, a.ID, 36)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestNestedPlanLinksLevels(t *testing.T) {
	table := ordersTable()
	region, _ := table.ColumnProjection("region")
	inner := Query{From: table, Dimensions: []ColumnProjection{region}}
	outer := Query{Dimensions: []ColumnProjection{region}}

	p, err := NewNestedPlan(inner, outer)
	require.NoError(t, err)
	assert.True(t, p.Nested)
	assert.Equal(t, inner, p.Outer.From)

	doc := p.Encode()
	assert.Equal(t, true, doc["nested"])
	assert.Equal(t, "(orders)", doc["outer"].(map[string]any)["from"])
	assert.Equal(t, "orders", doc["inner"].(map[string]any)["from"])

	flat, err := NewFlatPlan(inner)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, flat.ID)
}

func TestDefaultResolver(t *testing.T) {
	table := ordersTable()
	region, _ := table.ColumnProjection("region")
	big, _ := table.ColumnProjection("big")
	q := Query{From: table, Dimensions: []ColumnProjection{region}, Metrics: []ColumnProjection{big, region}}

	p, err := DefaultResolver{}.Resolve(q, big)
	require.NoError(t, err)
	assert.False(t, p.Nested)
	require.Len(t, p.Outer.Metrics, 1)
	assert.Equal(t, "big", p.Outer.Metrics[0].Name())
}
