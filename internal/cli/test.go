package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/eventloop/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name substring
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run scenario files against their configs",
		Long: `Run YAML scenarios with the conformance harness.

Each scenario names a config, a scripted screen and the expected outcome
and trace. Runs use a fake clock and a fixed run id, so they are
deterministic. <scenarios> is a directory (searched recursively for .yaml
and .yml files) or a single scenario file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  eventloop test ./testdata/scenarios
  eventloop test ./testdata/scenarios --filter enter_game
  eventloop test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name contains this string")

	return cmd
}

func runTests(opts *TestOptions, scenarios string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenarios); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios not found: %s", scenarios), nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Run logs are noise next to the report unless asked for.
	var hopts []harness.HarnessOption
	if opts.Verbose {
		hopts = append(hopts, harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	}
	h := harness.New(hopts...)
	result, err := h.RunSuite(ctx, scenarios, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to run scenarios", err)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeSuite(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func writeSuite(formatter *OutputFormatter, result *harness.SuiteResult) {
	w := formatter.Writer
	for _, o := range result.Outcomes {
		name := o.Scenario
		if name == "" {
			name = o.ScenarioPath
		}
		if o.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			formatter.VerboseLog("  %s run_id=%s", o.ScenarioPath, o.RunID)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range o.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed", result.Passed, result.Failed)
	if result.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", result.Skipped)
	}
	fmt.Fprintln(w)
}
