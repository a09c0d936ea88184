package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/plan"
	"github.com/roach88/nestq/internal/schema"
	"github.com/roach88/nestq/internal/split"
)

// QueryOptions holds the flags that describe a query.
type QueryOptions struct {
	Schema     string
	Table      string
	Metrics    []string
	Dimensions []string
	Filter     string // Inline YAML/JSON filter
	FilterFile string
	Args       []string
}

func (o *QueryOptions) addFlags(cmd *cobra.Command, withColumns bool) {
	cmd.Flags().StringVar(&o.Schema, "schema", "", "schema file or CUE directory (default from config)")
	cmd.Flags().StringVar(&o.Table, "table", "", "base table (required)")
	cmd.Flags().StringVar(&o.Filter, "filter", "", "filter document (YAML or JSON)")
	cmd.Flags().StringVar(&o.FilterFile, "filter-file", "", "read the filter document from a file")
	_ = cmd.MarkFlagRequired("table")
	cmd.MarkFlagsMutuallyExclusive("filter", "filter-file")
	if withColumns {
		cmd.Flags().StringArrayVarP(&o.Metrics, "metric", "m", nil, "metric to aggregate (repeatable)")
		cmd.Flags().StringArrayVarP(&o.Dimensions, "dim", "d", nil, "dimension to group by (repeatable)")
		cmd.Flags().StringArrayVar(&o.Args, "arg", nil, "metric argument as name=value (repeatable)")
	}
}

// loadCatalog loads the schema named by flag or, failing that, config.
func loadCatalog(root *RootOptions, path string) (*schema.Catalog, error) {
	if path == "" && root.Config != nil {
		path = root.Config.Schema
	}
	if path == "" {
		return nil, errors.New("no schema given: use --schema or set schema in the config file")
	}
	return schema.Load(path)
}

func (o *QueryOptions) filter() (filter.Expression, error) {
	data := []byte(o.Filter)
	if o.FilterFile != "" {
		var err error
		data, err = os.ReadFile(o.FilterFile)
		if err != nil {
			return nil, fmt.Errorf("read filter: %w", err)
		}
	}
	return filter.Parse(data, o.Table)
}

func (o *QueryOptions) request() (plan.Request, error) {
	f, err := o.filter()
	if err != nil {
		return plan.Request{}, err
	}
	args, err := ParseArguments(o.Args)
	if err != nil {
		return plan.Request{}, err
	}
	return plan.Request{
		Table:      o.Table,
		Metrics:    o.Metrics,
		Dimensions: o.Dimensions,
		Filter:     f,
		Arguments:  args,
	}, nil
}

// newAssembler builds an Assembler configured from the root options.
func newAssembler(root *RootOptions, catalog *schema.Catalog) *plan.Assembler {
	a := plan.New(catalog, root.Logger)
	if root.Config != nil {
		a.Checked = root.Config.Checked
	}
	return a
}

// classify maps a query-side error to an exit code and CLI error code.
func classify(err error) (int, string) {
	var parseErr *filter.ParseError
	switch {
	case errors.As(err, &parseErr):
		return ExitCommandError, ErrCodeFilterParse
	case errors.Is(err, ErrInvalidArgument):
		return ExitCommandError, ErrCodeInvalidArgument
	case errors.Is(err, plan.ErrInvalidRequest):
		return ExitCommandError, ErrCodeInvalidRequest
	case errors.Is(err, split.ErrMixedNegation):
		return ExitFailure, ErrCodeMixedNegation
	case errors.Is(err, os.ErrNotExist):
		return ExitCommandError, ErrCodeNotFound
	default:
		return ExitCommandError, ErrCodeGeneric
	}
}
