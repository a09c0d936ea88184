package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_AllScenariosPass(t *testing.T) {
	out, _, err := run(t, "check", testScenarios, "--golden-dir", testGolden, "--format", "json")
	require.NoError(t, err)

	var got CheckResult
	decodeJSON(t, out, &got)
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 7, got.Passed)
	assert.Zero(t, got.Failed)

	golden := make(map[string]string)
	for _, s := range got.Scenarios {
		golden[s.Name] = s.Golden
		assert.Empty(t, s.Errors, s.Name)
		assert.NotEmpty(t, s.Plan, s.Name)
	}
	assert.Equal(t, "match", golden["revenue_by_country"])
	assert.Equal(t, "match", golden["region_for_retail_customers"])
	assert.Empty(t, golden["scaled_revenue"], "no golden file means no comparison")
}

func TestCheck_TextOutput(t *testing.T) {
	out, _, err := run(t, "check", testScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ revenue_by_country")
	assert.Contains(t, out, "7 scenarios: 7 passed, 0 failed")
}

func TestCheck_FilterGlob(t *testing.T) {
	out, _, err := run(t, "check", testScenarios, "--filter", "revenue_*", "--format", "json")
	require.NoError(t, err)

	var got CheckResult
	decodeJSON(t, out, &got)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 6, got.Skipped)
	require.Len(t, got.Scenarios, 1)
	assert.Equal(t, "revenue_by_country", got.Scenarios[0].Name)
	assert.True(t, got.Scenarios[0].Nested)
}

func TestCheck_SingleFile(t *testing.T) {
	out, _, err := run(t, "check", filepath.Join(testScenarios, "scaled_revenue.yaml"), "--format", "json")
	require.NoError(t, err)

	var got CheckResult
	decodeJSON(t, out, &got)
	assert.Equal(t, 1, got.Passed)
	assert.False(t, got.Scenarios[0].Nested)
}

func TestCheck_UpdateWritesGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")
	scenario := filepath.Join(testScenarios, "revenue_by_country.yaml")

	out, _, err := run(t, "check", scenario, "--golden-dir", dir, "--update", "--format", "json")
	require.NoError(t, err)
	var got CheckResult
	decodeJSON(t, out, &got)
	assert.Equal(t, "updated", got.Scenarios[0].Golden)

	written, err := os.ReadFile(filepath.Join(dir, "revenue_by_country.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(testGolden, "revenue_by_country.golden"))
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(written))

	out, _, err = run(t, "check", scenario, "--golden-dir", dir, "--format", "json")
	require.NoError(t, err)
	decodeJSON(t, out, &got)
	assert.Equal(t, "match", got.Scenarios[0].Golden)
}

func TestCheck_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scaled_revenue.golden"), []byte(`{"scenario":"stale"}`), 0o644))

	out, _, err := run(t, "check", filepath.Join(testScenarios, "scaled_revenue.yaml"), "--golden-dir", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var got CheckResult
	decodeJSON(t, out, &got)
	assert.Equal(t, "mismatch", got.Scenarios[0].Golden)
	assert.False(t, got.Scenarios[0].Passed)
}

func TestCheck_FailingAssertion(t *testing.T) {
	schema, err := filepath.Abs(testSchema)
	require.NoError(t, err)
	data, err := filepath.Abs(testData)
	require.NoError(t, err)

	path := writeFile(t, "wrong_rows.yaml", `name: wrong_rows
description: "Expected rows do not match"
schema: `+schema+`
dataset: `+data+`
query:
  table: orders
  metrics: [revenue]
  dimensions: [region]
assertions:
  - type: rows
    rows:
      - [EU, 1]
`)

	out, _, err := run(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_rows")
	assert.Contains(t, out, "assertions[0]:")
	assert.Contains(t, out, "1 scenarios: 0 passed, 1 failed")
}

func TestCheck_InvalidScenarioFile(t *testing.T) {
	path := writeFile(t, "broken.yaml", "name: broken\n")

	out, _, err := run(t, "check", path, "--format", "json")
	require.Error(t, err)

	var got CheckResult
	decodeJSON(t, out, &got)
	require.Len(t, got.Scenarios, 1)
	assert.Equal(t, "broken", got.Scenarios[0].Name)
	assert.NotEmpty(t, got.Scenarios[0].Errors)
}

func TestCheck_Errors(t *testing.T) {
	out, _, err := run(t, "check", "missing-dir", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)

	_, _, err = run(t, "check", testScenarios, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = run(t, "check", testScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
