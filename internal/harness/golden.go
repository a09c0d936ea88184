package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
)

// Snapshot captures what a scenario planned and returned.
// Plan IDs are left out so snapshots survive encoding changes that do not
// change the SQL.
type Snapshot struct {
	Scenario    string
	Nested      bool
	Fallback    string
	InnerFilter string
	OuterFilter string
	SQL         string
	Params      []string
	Rows        [][]string
}

// NewSnapshot builds a snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario:    name,
		InnerFilter: filter.String(result.Split.Inner),
		OuterFilter: filter.String(result.Split.Outer),
		SQL:         result.SQL,
		Rows:        FormatRows(result.Rows),
	}
	if result.Plan != nil {
		s.Nested = result.Plan.Nested
		s.Fallback = result.Plan.Fallback
	}
	s.Params = make([]string, len(result.Params))
	for i, p := range result.Params {
		s.Params[i] = FormatCell(p)
	}
	return s
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
func (s Snapshot) toCanonicalMap() map[string]any {
	rows := make([]any, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = row
	}
	m := map[string]any{
		"scenario":     s.Scenario,
		"nested":       s.Nested,
		"inner_filter": s.InnerFilter,
		"outer_filter": s.OuterFilter,
		"sql":          s.SQL,
		"params":       s.Params,
		"rows":         rows,
	}
	if s.Fallback != "" {
		m["fallback"] = s.Fallback
	}
	return m
}

// Marshal renders the snapshot as canonical JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already executed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
