package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/harness"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Filter    string // Glob over scenario names
	GoldenDir string
	Update    bool
}

// CheckResult is the check command's output.
type CheckResult struct {
	Total     int                 `json:"total"`
	Passed    int                 `json:"passed"`
	Failed    int                 `json:"failed"`
	Skipped   int                 `json:"skipped"`
	Scenarios []ScenarioCheckInfo `json:"scenarios"`
}

// ScenarioCheckInfo is the outcome of one scenario.
type ScenarioCheckInfo struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Passed bool     `json:"passed"`
	Plan   string   `json:"plan,omitempty"`
	Nested bool     `json:"nested"`
	Golden string   `json:"golden,omitempty"` // "match", "mismatch", "updated", or empty
	Errors []string `json:"errors,omitempty"`
}

// String renders the results for text output.
func (r CheckResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		if s.Passed {
			fmt.Fprintf(&b, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			for _, line := range strings.Split(e, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d scenarios: %d passed, %d failed", r.Total, r.Passed, r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", r.Skipped)
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenarios>",
		Short: "Run planner scenarios",
		Long: `Run scenario files: plan each query, execute it against the
scenario's dataset, and evaluate its assertions.

When a golden directory is given, each scenario's snapshot is compared
against <golden-dir>/<name>.golden; --update rewrites the files.`,
		Example: `  nestq check ./scenarios/
  nestq check ./scenarios/ --filter 'revenue_*' --golden-dir ./golden`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "compare snapshots against golden files in this directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files instead of comparing")

	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, opts *CheckOptions, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("invalid --filter: %w", err))
		}
	}
	if opts.Update && opts.GoldenDir == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, errors.New("--update needs --golden-dir"))
	}

	files, err := harness.DiscoverScenarios(path)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := CheckResult{Scenarios: []ScenarioCheckInfo{}}
	for _, file := range files {
		info, skip := checkScenario(ctx, opts, formatter, file)
		if skip {
			result.Skipped++
			continue
		}
		result.Total++
		if info.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, info)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

// checkScenario runs one scenario file. It reports skip when the name
// does not match the --filter glob.
func checkScenario(ctx context.Context, opts *CheckOptions, formatter *OutputFormatter, file string) (ScenarioCheckInfo, bool) {
	info := ScenarioCheckInfo{Name: scenarioName(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		if opts.Filter != "" && !matches(opts.Filter, info.Name) {
			return info, true
		}
		info.Errors = []string{err.Error()}
		return info, false
	}
	info.Name = scenario.Name
	if opts.Filter != "" && !matches(opts.Filter, info.Name) {
		return info, true
	}

	formatter.VerboseLog("Running %s", file)
	result, err := harness.RunContext(ctx, scenario, opts.Logger)
	if err != nil {
		info.Errors = []string{err.Error()}
		return info, false
	}
	info.Plan = result.Plan.ID
	info.Nested = result.Plan.Nested
	info.Errors = result.Errors

	if opts.GoldenDir != "" {
		status, err := compareGolden(opts.GoldenDir, scenario.Name, result, opts.Update)
		info.Golden = status
		if err != nil {
			info.Errors = append(info.Errors, err.Error())
		}
	}
	info.Passed = len(info.Errors) == 0
	return info, false
}

// compareGolden checks the scenario snapshot against its golden file.
// A missing golden file is not an error unless update is set, in which
// case it is written.
func compareGolden(dir, name string, result *harness.Result, update bool) (string, error) {
	data, err := harness.NewSnapshot(name, result).Marshal()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
		return "updated", nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(data)) {
		return "mismatch", fmt.Errorf("golden %s does not match:\n  want: %s\n  got:  %s", path, bytes.TrimSpace(want), data)
	}
	return "match", nil
}

func scenarioName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}

func matches(pattern, name string) bool {
	ok, _ := filepath.Match(pattern, name)
	return ok
}
