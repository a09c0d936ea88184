package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_ListsRecordedPlans(t *testing.T) {
	db := filepath.Join(t.TempDir(), "plans.db")

	var ids []string
	for _, dim := range []string{"region", "country"} {
		out, _, err := run(t, planArgs("-m", "revenue", "-d", dim, "--db", db)...)
		require.NoError(t, err)
		var p PlanOutput
		decodeJSON(t, out, &p)
		ids = append(ids, p.ID)
	}

	out, _, err := run(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)
	var got HistoryOutput
	decodeJSON(t, out, &got)
	require.Len(t, got.Plans, 2)
	assert.Equal(t, ids[0], got.Plans[0].ID)
	assert.False(t, got.Plans[0].Nested)
	assert.Equal(t, ids[1], got.Plans[1].ID)
	assert.True(t, got.Plans[1].Nested)
	assert.Empty(t, got.Plans[0].Plan)

	// The nested plan reads orders through its inner query.
	out, _, err = run(t, "history", "--db", db, "--table", "orders", "--format", "json")
	require.NoError(t, err)
	decodeJSON(t, out, &got)
	assert.Len(t, got.Plans, 2)

	out, _, err = run(t, "history", "--db", db, "--table", "customer", "--format", "json")
	require.NoError(t, err)
	decodeJSON(t, out, &got)
	assert.Empty(t, got.Plans)

	out, _, err = run(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, ids[1])
	assert.Contains(t, out, "nested")
}

func TestHistory_ShowsOnePlan(t *testing.T) {
	db := filepath.Join(t.TempDir(), "plans.db")
	out, _, err := run(t, planArgs("-m", "revenue", "-d", "country", "--db", db)...)
	require.NoError(t, err)
	var p PlanOutput
	decodeJSON(t, out, &p)

	out, _, err = run(t, "history", "--db", db, "--id", p.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "plan "+p.ID+" (table orders, seq 1)")
	assert.Contains(t, out, "sql: "+p.SQL)
	assert.Contains(t, out, `encoding: {"`)
}

func TestHistory_Errors(t *testing.T) {
	out, _, err := run(t, "history", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeGeneric, decodeError(t, out).Code)

	db := filepath.Join(t.TempDir(), "plans.db")
	out, _, err = run(t, "history", "--db", db, "--id", "nope", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestHistory_EmptyText(t *testing.T) {
	out, _, err := run(t, "history", "--db", filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	assert.Equal(t, "no plans recorded\n", out)
}
