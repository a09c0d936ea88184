package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult is the validate command's output.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Path   string            `json:"path"`
	Tables []TableSummary    `json:"tables,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// TableSummary describes one loaded table.
type TableSummary struct {
	Name     string `json:"name"`
	Physical string `json:"physical"`
	Fields   int    `json:"fields"`
	Metrics  int    `json:"metrics"`
	Joins    int    `json:"joins"`
}

// ValidationIssue is one schema problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Table   string `json:"table,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the result for text output.
func (r ValidationResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s is valid (%d tables)\n", r.Path, len(r.Tables))
		for _, t := range r.Tables {
			fmt.Fprintf(&b, "  %s (%s): %d fields, %d metrics, %d joins\n",
				t.Name, t.Physical, t.Fields, t.Metrics, t.Joins)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	fmt.Fprintf(&b, "✗ %s is invalid (%d errors)\n", r.Path, len(r.Errors))
	for _, e := range r.Errors {
		loc := e.Table
		if e.Field != "" {
			loc += "." + e.Field
		}
		if loc != "" {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", e.Code, loc, e.Message)
		} else {
			fmt.Fprintf(&b, "  [%s] %s\n", e.Code, e.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [schema]",
		Short: "Validate a schema",
		Long: `Load a YAML schema, a .cue file, or a directory of CUE files and
check every table: references, joins, cycles, and join depth.

Without an argument the schema from the config file is validated.`,
		Example: `  nestq validate schema.yaml
  nestq validate ./schema/ --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd, opts, path)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, path string) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if path == "" && opts.Config != nil {
		path = opts.Config.Schema
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			errors.New("no schema given: pass a path or set schema in the config file"))
	}

	formatter.VerboseLog("Validating %s", path)
	catalog, err := schema.Load(path)
	result := ValidationResult{Path: path, Valid: err == nil}
	if err != nil {
		result.Errors = issues(err)
		if err := formatter.Success(result); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "schema is invalid", err)
	}

	for _, name := range catalog.Tables() {
		t, _ := catalog.Table(name)
		result.Tables = append(result.Tables, TableSummary{
			Name:     t.Name,
			Physical: t.Physical,
			Fields:   len(t.Fields),
			Metrics:  len(t.Metrics),
			Joins:    len(t.Joins),
		})
	}
	return formatter.Success(result)
}

// issues flattens a load error into reportable problems.
func issues(err error) []ValidationIssue {
	schemaErrs := schema.Errors(err)
	if len(schemaErrs) == 0 {
		return []ValidationIssue{{Code: ErrCodeSchemaInvalid, Message: err.Error()}}
	}
	out := make([]ValidationIssue, len(schemaErrs))
	for i, se := range schemaErrs {
		out[i] = ValidationIssue{
			Code:    string(se.Code),
			Table:   se.Table,
			Field:   se.Field,
			Message: se.Message,
		}
	}
	return out
}
