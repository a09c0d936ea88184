package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Table    string
	ID       string
}

// HistoryEntry is one logged plan.
type HistoryEntry struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Table    string `json:"table"`
	Nested   bool   `json:"nested"`
	Fallback string `json:"fallback,omitempty"`
	SQL      string `json:"sql"`
	Plan     string `json:"plan,omitempty"` // Canonical plan JSON, set for --id
}

// HistoryOutput is the history command's output.
type HistoryOutput struct {
	Plans []HistoryEntry `json:"plans"`
}

// String renders the plan log for text output.
func (o HistoryOutput) String() string {
	if len(o.Plans) == 0 {
		return "no plans recorded"
	}
	if len(o.Plans) == 1 && o.Plans[0].Plan != "" {
		p := o.Plans[0]
		var b strings.Builder
		fmt.Fprintf(&b, "plan %s (table %s, seq %d)\n", p.ID, p.Table, p.Seq)
		if p.Fallback != "" {
			fmt.Fprintf(&b, "fallback: %s\n", p.Fallback)
		}
		fmt.Fprintf(&b, "sql: %s\n", p.SQL)
		fmt.Fprintf(&b, "encoding: %s", p.Plan)
		return b.String()
	}

	var b strings.Builder
	rows := make([][]string, len(o.Plans))
	for i, p := range o.Plans {
		kind := "flat"
		if p.Nested {
			kind = "nested"
		}
		rows[i] = []string{strconv.FormatInt(p.Seq, 10), p.ID, p.Table, kind}
	}
	writeTable(&b, []string{"SEQ", "ID", "TABLE", "KIND"}, rows)
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List plans recorded in the plan log",
		Long: `List the plans that "nestq plan --db" recorded, oldest first.
With --id, show one plan with its canonical encoding.`,
		Example: `  nestq history --db plans.db
  nestq history --db plans.db --table orders --format json
  nestq history --db plans.db --id 5b0c...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database holding the plan log (default from config)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "only list plans over this table")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single plan")

	return cmd
}

func runHistory(ctx context.Context, cmd *cobra.Command, opts *HistoryOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" && opts.Config != nil {
		path = opts.Config.Database
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			errors.New("no database given: use --db or set database in the config file"))
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStoreFailed, err)
	}
	defer st.Close()

	out := HistoryOutput{Plans: []HistoryEntry{}}
	if opts.ID != "" {
		rec, err := st.ReadPlan(ctx, opts.ID)
		if errors.Is(err, store.ErrPlanNotFound) {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, err)
		}
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStoreFailed, err)
		}
		entry := historyEntry(rec)
		entry.Plan = rec.PlanJSON
		out.Plans = append(out.Plans, entry)
		return formatter.Success(out)
	}

	recs, err := st.ListPlans(ctx, opts.Table)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStoreFailed, err)
	}
	for _, rec := range recs {
		out.Plans = append(out.Plans, historyEntry(rec))
	}
	return formatter.Success(out)
}

func historyEntry(rec store.PlanRecord) HistoryEntry {
	return HistoryEntry{
		Seq:      rec.Seq,
		ID:       rec.ID,
		Table:    rec.Table,
		Nested:   rec.Nested,
		Fallback: rec.Fallback,
		SQL:      rec.SQL,
	}
}
