package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nestq/internal/plan"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/querysql"
	"github.com/roach88/nestq/internal/schema"
	"github.com/roach88/nestq/internal/store"
)

// Harness executes scenario queries against one loaded store.
type Harness struct {
	store     *store.Store
	assembler *plan.Assembler
	compiler  *querysql.SQLCompiler
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and load the dataset
// 2. Load the schema
// 3. Plan the query, compile it, and execute it
// 4. Plan, compile, and execute the same query flat
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and a logger for plan decisions.
// A nil logger discards output.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	catalog, err := schema.Load(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	ds, err := store.ReadDataset(scenario.Dataset)
	if err != nil {
		return nil, err
	}
	if err := st.LoadDataset(ctx, ds); err != nil {
		return nil, err
	}

	h := &Harness{
		store:     st,
		assembler: plan.New(catalog, logger),
		compiler:  querysql.NewSQLCompiler(catalog),
		logger:    logger.With("scenario", scenario.Name),
	}

	result := NewResult()
	if err := h.execute(ctx, scenario.Query, result); err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// execute plans and runs spec, then runs a flat plan of the same query.
func (h *Harness) execute(ctx context.Context, spec QuerySpec, result *Result) error {
	req, err := spec.Request()
	if err != nil {
		return err
	}
	q, err := h.assembler.Build(req)
	if err != nil {
		return err
	}

	result.Split, err = h.assembler.Split(q.Where)
	if err != nil {
		return err
	}
	result.Plan, err = h.assembler.Assemble(q)
	if err != nil {
		return err
	}

	result.SQL, result.Params, result.Rows, err = h.run(ctx, result.Plan)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	flat, err := query.NewFlatPlan(q)
	if err != nil {
		return err
	}
	result.FlatSQL, _, result.FlatRows, err = h.run(ctx, flat)
	if err != nil {
		return fmt.Errorf("flat plan: %w", err)
	}

	h.logger.Debug("scenario executed",
		"plan", result.Plan.ID,
		"nested", result.Plan.Nested,
		"rows", len(result.Rows),
	)
	return nil
}

func (h *Harness) run(ctx context.Context, p *query.Plan) (string, []any, [][]any, error) {
	sql, params, err := h.compiler.Compile(p)
	if err != nil {
		return "", nil, nil, err
	}
	res, err := h.store.Query(ctx, sql, params...)
	if err != nil {
		return sql, params, nil, err
	}
	return sql, params, res.Rows, nil
}
