package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/harness"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/querysql"
	"github.com/roach88/nestq/internal/store"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Query    QueryOptions
	Database string
	Data     string
	Execute  bool
}

// PlanOutput is the plan command's output.
type PlanOutput struct {
	ID          string     `json:"id"`
	Table       string     `json:"table"`
	Nested      bool       `json:"nested"`
	Fallback    string     `json:"fallback,omitempty"`
	InnerFilter string     `json:"inner_filter"`
	OuterFilter string     `json:"outer_filter"`
	SQL         string     `json:"sql"`
	Params      []any      `json:"params"`
	Recorded    bool       `json:"recorded"`
	Columns     []string   `json:"columns,omitempty"`
	Rows        [][]string `json:"rows,omitempty"`
}

// String renders the plan for text output.
func (o PlanOutput) String() string {
	var b strings.Builder
	kind := "flat"
	if o.Nested {
		kind = "nested"
	}
	fmt.Fprintf(&b, "plan %s (%s)\n", o.ID, kind)
	if o.Fallback != "" {
		fmt.Fprintf(&b, "fallback: %s\n", o.Fallback)
	}
	fmt.Fprintf(&b, "inner filter: %s\n", o.InnerFilter)
	fmt.Fprintf(&b, "outer filter: %s\n", o.OuterFilter)
	fmt.Fprintf(&b, "sql: %s\n", o.SQL)
	params := make([]string, len(o.Params))
	for i, p := range o.Params {
		params[i] = harness.FormatCell(p)
	}
	fmt.Fprintf(&b, "params: [%s]\n", strings.Join(params, ", "))
	if o.Columns != nil {
		b.WriteString("\n")
		writeTable(&b, o.Columns, o.Rows)
		fmt.Fprintf(&b, "(%d rows)\n", len(o.Rows))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a query and print its SQL",
		Long: `Plan an aggregate query, nesting it when a filter or dimension
needs a join, and print the compiled SQL.

With --db the plan is recorded in the database's plan log. With --data
the dataset is loaded first. --execute runs the SQL and prints the rows.`,
		Example: `  nestq plan --schema schema.yaml --table orders -m revenue -d country \
    --filter '{field: status, op: in, values: [open]}'
  nestq plan --table orders -m scaled -d region --arg rate=2 --data data.yaml --execute`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, opts)
		},
	}

	opts.Query.addFlags(cmd, true)
	cmd.Flags().StringVar(&opts.Database, "db", "", "database for the plan log and execution (default from config)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "dataset file to load before executing")
	cmd.Flags().BoolVar(&opts.Execute, "execute", false, "execute the plan and print rows")

	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts *PlanOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	catalog, err := loadCatalog(opts.RootOptions, opts.Query.Schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchemaInvalid, err)
	}
	req, err := opts.Query.request()
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}

	assembler := newAssembler(opts.RootOptions, catalog)
	q, err := assembler.Build(req)
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}
	parts, err := assembler.Split(q.Where)
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}
	p, err := assembler.Assemble(q)
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}

	sql, params, err := querysql.NewSQLCompiler(catalog).Compile(p)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCompileFailed, err)
	}
	formatter.VerboseLog("Planned %s (nested=%t)", p.ID, p.Nested)

	out := PlanOutput{
		ID:          p.ID,
		Table:       req.Table,
		Nested:      p.Nested,
		Fallback:    p.Fallback,
		InnerFilter: filter.String(parts.Inner),
		OuterFilter: filter.String(parts.Outer),
		SQL:         sql,
		Params:      params,
	}
	if out.Params == nil {
		out.Params = []any{}
	}

	dbPath := opts.Database
	if dbPath == "" && opts.Config != nil {
		dbPath = opts.Config.Database
	}
	if opts.Execute && dbPath == "" && opts.Data == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			errors.New("--execute needs --db or --data"))
	}
	if dbPath == "" && opts.Data == "" {
		return formatter.Success(out)
	}

	if err := withStore(ctx, dbPath, opts.Data, func(st *store.Store) error {
		if dbPath != "" {
			recorded, err := recordPlan(ctx, st, p, sql)
			if err != nil {
				return err
			}
			out.Recorded = recorded
		}
		if !opts.Execute {
			return nil
		}
		res, err := st.Query(ctx, sql, params...)
		if err != nil {
			return err
		}
		out.Columns = res.Columns
		out.Rows = harness.FormatRows(res.Rows)
		if out.Rows == nil {
			out.Rows = [][]string{}
		}
		return nil
	}); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStoreFailed, err)
	}
	return formatter.Success(out)
}

// withStore opens the database at path (in memory when empty), loads the
// dataset file if given, and calls fn.
func withStore(ctx context.Context, path, data string, fn func(*store.Store) error) error {
	if path == "" {
		path = ":memory:"
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if data != "" {
		ds, err := store.ReadDataset(data)
		if err != nil {
			return err
		}
		if err := st.LoadDataset(ctx, ds); err != nil {
			return err
		}
	}
	return fn(st)
}

// recordPlan stores p under the table its outer query ultimately reads.
func recordPlan(ctx context.Context, st *store.Store, p *query.Plan, sql string) (bool, error) {
	base, ok := query.BaseTable(*p.Outer)
	if !ok {
		return false, fmt.Errorf("plan %s reads no base table", p.ID)
	}
	planJSON, err := ir.MarshalCanonical(p.Encode())
	if err != nil {
		return false, fmt.Errorf("encode plan: %w", err)
	}
	return st.RecordPlan(ctx, store.PlanRecord{
		ID:       p.ID,
		Table:    base.Name(),
		Nested:   p.Nested,
		Fallback: p.Fallback,
		PlanJSON: string(planJSON),
		SQL:      sql,
	})
}
