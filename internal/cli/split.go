package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/filter"
)

// SplitOptions holds flags for the split command.
type SplitOptions struct {
	*RootOptions
	Query QueryOptions
}

// SplitOutput is the split command's output.
type SplitOutput struct {
	Table  string `json:"table"`
	Filter string `json:"filter"`
	Inner  string `json:"inner"`
	Outer  string `json:"outer"`
}

// String renders the split for text output.
func (o SplitOutput) String() string {
	return fmt.Sprintf("filter: %s\ninner:  %s\nouter:  %s", o.Filter, o.Inner, o.Outer)
}

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SplitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a filter between the inner and outer query",
		Long: `Normalize a filter and show which part can run in the join-free
inner query and which part must run after the joins.`,
		Example: `  nestq split --schema schema.yaml --table orders \
    --filter '{and: [{field: status, op: in, values: [open]}, {field: country, op: in, values: [DE]}]}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, opts)
		},
	}

	opts.Query.addFlags(cmd, false)
	return cmd
}

func runSplit(cmd *cobra.Command, opts *SplitOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	catalog, err := loadCatalog(opts.RootOptions, opts.Query.Schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchemaInvalid, err)
	}
	expr, err := opts.Query.filter()
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}
	if err := filter.Validate(expr); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFilterParse, err)
	}

	parts, err := newAssembler(opts.RootOptions, catalog).Split(expr)
	if err != nil {
		code, errCode := classify(err)
		return formatter.Fail(code, errCode, err)
	}
	return formatter.Success(SplitOutput{
		Table:  opts.Query.Table,
		Filter: filter.String(expr),
		Inner:  filter.String(parts.Inner),
		Outer:  filter.String(parts.Outer),
	})
}
