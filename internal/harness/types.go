package harness

import (
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/split"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Plan is the assembled plan for the scenario query.
	Plan *query.Plan `json:"-"`

	// Split is the filter split the plan was built from.
	Split split.Result `json:"-"`

	// SQL and Params are the compiled plan.
	SQL    string `json:"sql"`
	Params []any  `json:"params"`

	// Rows are the plan's results.
	Rows [][]any `json:"rows"`

	// FlatSQL and FlatRows come from planning the same query without nesting.
	FlatSQL  string  `json:"flat_sql"`
	FlatRows [][]any `json:"flat_rows"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
