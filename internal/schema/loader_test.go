package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertOrdersCatalog(t *testing.T, c *Catalog) {
	t.Helper()
	assert.Equal(t, []string{"orders", "customer"}, c.Tables())

	orders, ok := c.Table("orders")
	require.True(t, ok)
	assert.Equal(t, "order_facts", orders.Physical)
	require.Len(t, orders.Fields, 5)
	assert.Equal(t, "id", orders.Fields[0].Name)
	assert.Equal(t, TypeInteger, orders.Fields[0].Type)
	assert.Equal(t, "{{$region}}", orders.Fields[1].Expression)

	revenue, ok := orders.Metric("revenue")
	require.True(t, ok)
	assert.Equal(t, "SUM({{amount}})", revenue.Expression)

	assert.Equal(t, []string{"customer"}, c.ResolvedJoins("orders", "country"))
	assert.Empty(t, c.ResolvedJoins("orders", "region"))
}

func TestLoadCUE(t *testing.T) {
	c, err := LoadCUE("testdata/cue")
	require.NoError(t, err)
	assertOrdersCatalog(t, c)
}

func TestLoadDispatchesOnPath(t *testing.T) {
	c, err := Load("testdata/cue")
	require.NoError(t, err)
	assertOrdersCatalog(t, c)

	c, err = Load("testdata/cue/orders.cue")
	require.NoError(t, err)
	assertOrdersCatalog(t, c)

	c, err = Load("testdata/orders.yaml")
	require.NoError(t, err)
	assertOrdersCatalog(t, c)

	_, err = Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	c, err := LoadYAML("testdata/orders.yaml")
	require.NoError(t, err)
	assertOrdersCatalog(t, c)
}

func TestCompileCUERejectsUnknownKeys(t *testing.T) {
	_, err := CompileCUE([]byte(`
table: orders: {
	fields: region: {}
}
`), "bad.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "want CompileError, got %T", err)
	assert.True(t, ce.Pos.IsValid())
}

func TestCompileCUERequiresMetricExpression(t *testing.T) {
	_, err := CompileCUE([]byte(`
table: orders: {
	field: amount: {}
	metric: revenue: {type: "DECIMAL"}
}
`), "bad.cue")
	assert.Error(t, err)
}

func TestCompileCUEReportsSchemaErrors(t *testing.T) {
	_, err := CompileCUE([]byte(`
table: orders: {
	field: country: {expression: "{{customer.country}}"}
}
`), "bad.cue")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeUnknownJoin))
}

func TestCompileCUERejectsBadType(t *testing.T) {
	_, err := CompileCUE([]byte(`
table: orders: {
	field: amount: {type: "FLOAT"}
}
`), "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value type")
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"no tables", `tables: []`},
		{"unknown key", "tables:\n  - name: t\n    colums: []\n"},
		{"bad type", "tables:\n  - name: t\n    fields:\n      - {name: a, type: FLOAT}\n"},
		{"schema error", "tables:\n  - name: t\n    fields:\n      - {name: a, expression: \"{{b}}\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
