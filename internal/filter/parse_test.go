package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/ir"
)

func TestParse_Predicate(t *testing.T) {
	e, err := Parse([]byte(`{field: region, op: in, values: [west, east]}`), "orders")
	require.NoError(t, err)
	assert.True(t, Equal(region("west", "east"), e), String(e))
}

func TestParse_JSON(t *testing.T) {
	doc := `{"and": [{"field": "region", "op": "in", "values": ["west"]},
	                 {"table": "orders", "field": "amount", "op": "gt", "values": 5}]}`
	e, err := Parse([]byte(doc), "orders")
	require.NoError(t, err)
	assert.True(t, Equal(And{region("west"), amountGT(5)}, e), String(e))
}

func TestParse_NaryFoldsLeft(t *testing.T) {
	doc := `
or:
  - {field: region, op: in, values: [west]}
  - {field: region, op: in, values: [east]}
  - not: {field: amount, op: gt, values: [5]}
`
	e, err := Parse([]byte(doc), "orders")
	require.NoError(t, err)

	want := Or{Left: Or{Left: region("west"), Right: region("east")}, Right: Not{Negated: amountGT(5)}}
	assert.True(t, Equal(want, e), String(e))

	// A single operand is the operand itself.
	e, err = Parse([]byte(`{and: [{field: region, op: in, values: [west]}]}`), "orders")
	require.NoError(t, err)
	assert.True(t, Equal(region("west"), e), String(e))
}

func TestParse_ValueTypes(t *testing.T) {
	doc := `{table: t, field: f, op: in, values: [a, 3, 2.50, true]}`
	e, err := Parse([]byte(doc), "")
	require.NoError(t, err)

	p := e.(Predicate)
	assert.Equal(t, "t", p.Table)
	require.Len(t, p.Values, 4)
	assert.Equal(t, ir.IRString("a"), p.Values[0])
	assert.Equal(t, ir.IRInt(3), p.Values[1])
	assert.True(t, ir.Equal(ir.MustIRDecimal("2.5"), p.Values[2]))
	assert.Equal(t, ir.IRBool(true), p.Values[3])
}

func TestParse_NoValueOperator(t *testing.T) {
	e, err := Parse([]byte(`{field: note, op: ISNULL}`), "orders")
	require.NoError(t, err)
	assert.True(t, Equal(NewPredicate("orders", "note", OpIsNull), e))
}

func TestParse_Empty(t *testing.T) {
	for _, doc := range []string{"", "   \n", "null", "~"} {
		e, err := Parse([]byte(doc), "orders")
		require.NoError(t, err, "doc %q", doc)
		assert.Nil(t, e, "doc %q", doc)
	}
}

func TestParse_RoundTripEncode(t *testing.T) {
	original := Or{
		Left:  And{Left: region("west"), Right: NewPredicate("orders", "amount", OpBetween, ir.IRInt(1), ir.IRInt(9))},
		Right: Not{Negated: NewPredicate("orders", "sku", OpPrefix, ir.IRString("A-"))},
	}

	data, err := ir.MarshalCanonical(Encode(original))
	require.NoError(t, err)

	parsed, err := Parse(data, "")
	require.NoError(t, err)
	assert.True(t, Equal(original, parsed), String(parsed))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
	}{
		{"syntax", `{field: [`, "invalid document"},
		{"not a mapping", `[1, 2]`, "expected a mapping"},
		{"unknown key", `{field: a, op: in, values: [1], extra: 1}`, `unknown key "extra"`},
		{"missing field", `{op: in, values: [1]}`, "requires a field"},
		{"missing op", `{field: a, values: [1]}`, "requires an op"},
		{"bad op", `{field: a, op: like, values: [1]}`, `unknown operator "like"`},
		{"arity", `{field: a, op: between, values: [1]}`, "exactly two values"},
		{"arity none", `{field: a, op: isnull, values: [1]}`, "takes no values"},
		{"null value", `{field: a, op: in, values: [null]}`, "isnull"},
		{"nested value", `{field: a, op: in, values: [[1]]}`, "must be scalars"},
		{"empty and", `{and: []}`, "at least one operand"},
		{"and not list", `{and: {field: a, op: isnull}}`, "expected a list"},
		{"mixed keys", `{and: [], field: a}`, "only key"},
		{"nested error path", `{and: [{field: a, op: isnull}, {or: [{field: b, op: zz}]}]}`, "and[1].or[0].op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "t")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}
