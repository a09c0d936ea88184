package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_SeparatesLevels(t *testing.T) {
	out, _, err := run(t, "split", "--schema", testSchema, "--table", "orders", "--format", "json",
		"--filter", `{and: [{field: status, op: in, values: [open]}, {field: country, op: in, values: [DE]}]}`)
	require.NoError(t, err)

	var got SplitOutput
	decodeJSON(t, out, &got)
	assert.Equal(t, "orders", got.Table)
	assert.Equal(t, "orders.status in ('open')", got.Inner)
	assert.Equal(t, "orders.country in ('DE')", got.Outer)
}

func TestSplit_OrGoesOuter(t *testing.T) {
	out, _, err := run(t, "split", "--schema", testSchema, "--table", "orders",
		"--filter", `{or: [{field: region, op: in, values: [APAC]}, {field: country, op: in, values: [FR]}]}`)
	require.NoError(t, err)
	assert.Contains(t, out, "inner:  TRUE")
	assert.Contains(t, out, "outer:  (orders.region in ('APAC') OR orders.country in ('FR'))")
}

func TestSplit_NoFilter(t *testing.T) {
	out, _, err := run(t, "split", "--schema", testSchema, "--table", "orders")
	require.NoError(t, err)
	assert.Equal(t, "filter: TRUE\ninner:  TRUE\nouter:  TRUE\n", out)
}

func TestSplit_FilterFile(t *testing.T) {
	path := writeFile(t, "filter.json", `{"field": "segment", "op": "in", "values": ["retail"]}`)

	out, _, err := run(t, "split", "--schema", testSchema, "--table", "orders", "--filter-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "outer:  orders.segment in ('retail')")
}

func TestSplit_ParseError(t *testing.T) {
	out, _, err := run(t, "split", "--schema", testSchema, "--table", "orders", "--format", "json",
		"--filter", `{field: status, op: resembles, values: [open]}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeFilterParse, decodeError(t, out).Code)
}

func TestSplit_CheckedAcceptsNormalizedNegation(t *testing.T) {
	cfg := writeFile(t, "nestq.yaml", "checked: true\n")

	// The normalizer runs first, so NOT never reaches a mixed subtree.
	out, _, err := run(t, "--config", cfg, "split", "--schema", testSchema, "--table", "orders",
		"--filter", `{not: {and: [{field: status, op: in, values: [closed]}, {field: country, op: in, values: [DE]}]}}`)
	require.NoError(t, err)
	assert.Contains(t, out, "outer:  (orders.status notin ('closed') OR orders.country notin ('DE'))")
}

func TestSplit_RequiresTable(t *testing.T) {
	_, _, err := run(t, "split", "--schema", testSchema)
	require.Error(t, err)
}

func TestSplit_BadSchema(t *testing.T) {
	out, _, err := run(t, "split", "--schema", "missing.yaml", "--table", "orders", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSchemaInvalid, decodeError(t, out).Code)
}
