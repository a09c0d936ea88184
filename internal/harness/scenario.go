package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/plan"
	"github.com/roach88/nestq/internal/query"
)

// Scenario defines a planner scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of a schema file or CUE package directory.
	// Relative paths are resolved against the scenario file.
	Schema string `yaml:"schema"`

	// Dataset is the path of a YAML dataset file.
	Dataset string `yaml:"dataset"`

	// Query is the query to plan and execute.
	Query QuerySpec `yaml:"query"`

	// Assertions validate the plan and its results.
	Assertions []Assertion `yaml:"assertions"`
}

// QuerySpec is the YAML form of a plan.Request.
type QuerySpec struct {
	Table      string   `yaml:"table"`
	Metrics    []string `yaml:"metrics,omitempty"`
	Dimensions []string `yaml:"dimensions,omitempty"`

	// Filter uses the filter document format; predicates default to Table.
	Filter yaml.Node `yaml:"filter,omitempty"`

	// Arguments are bound to every metric.
	Arguments map[string]any `yaml:"arguments,omitempty"`
}

// Request converts the spec into a plan request.
func (q QuerySpec) Request() (plan.Request, error) {
	f, err := filter.ParseNode(&q.Filter, q.Table)
	if err != nil {
		return plan.Request{}, fmt.Errorf("filter: %w", err)
	}

	args := make([]query.Argument, 0, len(q.Arguments))
	for name, v := range q.Arguments {
		iv, err := ir.FromAny(v)
		if err != nil {
			return plan.Request{}, fmt.Errorf("argument %s: %w", name, err)
		}
		args = append(args, query.Argument{Name: name, Value: iv})
	}

	return plan.Request{
		Table:      q.Table,
		Metrics:    slices.Clone(q.Metrics),
		Dimensions: slices.Clone(q.Dimensions),
		Filter:     f,
		Arguments:  query.SortArguments(args),
	}, nil
}

// Assertion validates one property of a scenario run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect is the expected truth value (nested, fallback).
	Expect *bool `yaml:"expect,omitempty"`

	// Filter is the expected rendering of a split fragment
	// (inner_filter, outer_filter).
	Filter string `yaml:"filter,omitempty"`

	// Rows are the expected result rows (rows).
	Rows [][]any `yaml:"rows,omitempty"`
}

// Assertion type constants.
const (
	AssertNested      = "nested"
	AssertFallback    = "fallback"
	AssertInnerFilter = "inner_filter"
	AssertOuterFilter = "outer_filter"
	AssertEquivalent  = "equivalent"
	AssertRows        = "rows"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Schema = resolvePath(base, scenario.Schema)
	scenario.Dataset = resolvePath(base, scenario.Dataset)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if s.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if _, err := os.Stat(s.Dataset); os.IsNotExist(err) {
		return fmt.Errorf("dataset not found: %s", s.Dataset)
	}

	if s.Query.Table == "" {
		return fmt.Errorf("query.table is required")
	}
	if len(s.Query.Metrics) == 0 && len(s.Query.Dimensions) == 0 {
		return fmt.Errorf("query needs at least one metric or dimension")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNested, AssertFallback:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertInnerFilter, AssertOuterFilter:
		if a.Filter == "" {
			return fmt.Errorf("assertions[%d]: filter is required for %s (use TRUE for none)", index, a.Type)
		}
	case AssertRows:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for rows", index)
		}
	case AssertEquivalent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
