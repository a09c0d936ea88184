package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/filter"
)

// AssertionError is returned when an assertion fails.
// It includes the compiled SQL to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled plan
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against a result.
// Returns the messages of the failed ones.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertNested:
		return assertBool(a, result.Plan != nil && result.Plan.Nested, result.SQL)
	case AssertFallback:
		return assertBool(a, result.Plan != nil && result.Plan.Fallback != "", result.SQL)
	case AssertInnerFilter:
		return assertFilter(a, result.Split.Inner, result.SQL)
	case AssertOuterFilter:
		return assertFilter(a, result.Split.Outer, result.SQL)
	case AssertEquivalent:
		return assertEquivalent(result)
	case AssertRows:
		return assertRows(a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertBool(a Assertion, actual bool, sql string) error {
	if a.Expect == nil || *a.Expect == actual {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: strconv.FormatBool(*a.Expect),
		Actual:   strconv.FormatBool(actual),
		SQL:      sql,
	}
}

func assertFilter(a Assertion, actual filter.Expression, sql string) error {
	got := filter.String(actual)
	if got == a.Filter {
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: a.Filter, Actual: got, SQL: sql}
}

// assertEquivalent compares rows as multisets: both plans order by their
// dimensions, but ties are free to differ.
func assertEquivalent(result *Result) error {
	got := sortedRows(FormatRows(result.Rows))
	want := sortedRows(FormatRows(result.FlatRows))
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEquivalent,
		Expected: strings.Join(want, "; "),
		Actual:   strings.Join(got, "; "),
		SQL:      result.SQL,
	}
}

func assertRows(a Assertion, result *Result) error {
	got := joinRows(FormatRows(result.Rows))
	want := joinRows(FormatRows(a.Rows))
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRows,
		Expected: strings.Join(want, "; "),
		Actual:   strings.Join(got, "; "),
		SQL:      result.SQL,
	}
}

// FormatRows renders every cell with FormatCell.
func FormatRows(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = FormatCell(v)
		}
	}
	return out
}

// FormatCell renders a database or YAML value for comparison.
// Numbers print without trailing zeros, so 180 and 180.0 agree; NULL
// prints as NULL.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func joinRows(rows [][]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = strings.Join(row, " | ")
	}
	return out
}

func sortedRows(rows [][]string) []string {
	out := joinRows(rows)
	slices.Sort(out)
	return out
}
