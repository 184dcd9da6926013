package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eventloop/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Module   string             `json:"module,omitempty"`
	Events   int                `json:"events,omitempty"`
	Hash     string             `json:"graph_hash,omitempty"`
	Errors   []ConfigProblem    `json:"errors,omitempty"`
	Warnings []compiler.Warning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.json>",
		Short: "Validate a config without running it",
		Long: `Validate a JSON config against the config schema and check every event
reference. Static analysis warnings (cycles, unreachable events) are
printed but never fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, problems := loadGraph(path)
	if len(problems) > 0 {
		if problems[0].Code == ErrCodeNotFound || onlyReadFailure(problems) {
			return outputValidateError(formatter, problems[0].Code, problems[0].Message, nil)
		}
		return outputValidationErrors(formatter, problems)
	}

	g := loaded.Graph
	formatter.VerboseLog("Loaded %s: %d event(s), hash %s", path, g.Len(), g.Hash())

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:    true,
			Module:   g.ModuleName(),
			Events:   g.Len(),
			Hash:     g.Hash(),
			Warnings: loaded.Warnings,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid (%d events)\n", path, g.Len())
	writeWarnings(formatter, loaded.Warnings)
	return nil
}

// writeWarnings prints static analysis warnings in text format.
func writeWarnings(formatter *OutputFormatter, warnings []compiler.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", w.Level, w.Kind, w.Message)
	}
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every problem of an invalid config.
func outputValidationErrors(formatter *OutputFormatter, problems []ConfigProblem) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: problems},
			Error: &CLIError{
				Code:    problems[0].Code,
				Message: problems[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range problems {
		fmt.Fprintf(formatter.Writer, "  %s\n", p)
	}
	return exitErr
}
