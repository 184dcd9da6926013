package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eventloop/internal/automation"
	"github.com/roach88/eventloop/internal/engine"
	"github.com/roach88/eventloop/internal/ir"
	"github.com/roach88/eventloop/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	Script       string
	Flags        []string
	Set          []string
	MaxSteps     int
	PollInterval time.Duration
	VirtualTime  bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the printed outcome of a run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Module     string          `json:"module,omitempty"`
	Status     ir.RunStatus    `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Error      string          `json:"error,omitempty"`
	Steps      int             `json:"steps"`
	LastEvent  string          `json:"last_event,omitempty"`
	Flags      map[string]bool `json:"flags"`
	SharedData map[string]any  `json:"shared_data"`
	Calls      []string        `json:"calls,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.json>",
		Short: "Run a config against a scripted screen",
		Long: `Run a config from its initial event until it exits or fails.

Screen, input and OCR are served by a scripted automation backend: the
--script file lists which elements become visible and when, the text OCR
returns per crop, and which calls fail. Without a script nothing is
visible. With --virtual-time every wait and poll advances a fake clock,
so a run finishes instantly.

Example:
  eventloop run ./enter_game.json --script ./screen.yaml --virtual-time
  eventloop run ./daily.json --db ./runs.db --flag claimed=true --set attempts=2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run in")
	cmd.Flags().StringVar(&opts.Script, "script", "", "path to the screen script (YAML)")
	cmd.Flags().StringArrayVar(&opts.Flags, "flag", nil, "initial flag override name=true|false (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "initial shared data override key=value, value parsed as JSON when possible (repeatable)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum event entries per run (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", engine.DefaultPollInterval, "pause between condition checks")
	cmd.Flags().BoolVar(&opts.VirtualTime, "virtual-time", false, "advance a fake clock instead of sleeping")

	return cmd
}

func runGraph(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	loaded, problems := loadGraph(path)
	if len(problems) > 0 {
		return outputValidateError(formatter, problems[0].Code, problems[0].String(), problems)
	}
	g := loaded.Graph

	flags, err := parseFlagOverrides(opts.Flags)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadOverride, "invalid flag override", err)
	}
	shared, err := parseSharedOverrides(opts.Set)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadOverride, "invalid shared data override", err)
	}

	var script automation.Script
	if opts.Script != "" {
		script, err = automation.LoadScript(opts.Script)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeScript, "failed to load script", err)
		}
	}

	var ts engine.TimeSource = engine.SystemTime{}
	if opts.VirtualTime {
		ts = automation.NewVirtualTime(time.Now())
	}
	scripted := automation.New(script, ts)

	var recorder engine.Recorder = engine.NewMemoryRecorder()
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = st
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	caps := scripted.Capabilities(engine.NewRegistry())
	caps.Logger = logger
	runner, err := engine.NewRunner(caps,
		engine.WithTimeSource(ts),
		engine.WithRecorder(recorder),
		engine.WithRunIDGenerator(runIDs),
		engine.WithLogger(logger),
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithPollInterval(opts.PollInterval),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create runner", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res := runner.Run(ctx, g, flags, shared)

	summary := RunSummary{
		RunID:      res.RunID,
		Module:     g.ModuleName(),
		Status:     res.Status,
		Reason:     res.Reason,
		Steps:      res.Steps,
		LastEvent:  res.LastEvent,
		Flags:      res.Flags,
		SharedData: res.SharedData,
		Calls:      scripted.Calls(),
	}
	if res.Err != nil {
		summary.ErrorCode = engine.ErrorCode(res.Err)
		summary.Error = res.Err.Error()
	}

	return outputRunSummary(formatter, summary, logger)
}

func outputRunSummary(formatter *OutputFormatter, s RunSummary, logger *slog.Logger) error {
	failed := s.Status == ir.StatusFailed

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: s}
		if failed {
			resp.Status = "error"
			resp.Error = &CLIError{Code: s.ErrorCode, Message: s.Error}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeRunSummary(formatter, s)
	}

	if failed {
		logger.Debug("run failed", "run_id", s.RunID, "code", s.ErrorCode)
		return NewExitError(ExitFailure, fmt.Sprintf("run %s failed: %s", s.RunID, s.ErrorCode))
	}
	return nil
}

func writeRunSummary(formatter *OutputFormatter, s RunSummary) {
	w := formatter.Writer
	if s.Status == ir.StatusFailed {
		fmt.Fprintf(w, "✗ Run %s failed after %d step(s)\n", s.RunID, s.Steps)
		fmt.Fprintf(w, "  error_code: %s\n", s.ErrorCode)
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	} else {
		reason := s.Reason
		if reason == "" {
			reason = "no further transition"
		}
		fmt.Fprintf(w, "✓ Run %s exited after %d step(s): %s\n", s.RunID, s.Steps, reason)
	}
	if s.LastEvent != "" {
		fmt.Fprintf(w, "  last event: %s\n", s.LastEvent)
	}
	if len(s.Flags) > 0 {
		fmt.Fprintf(w, "  flags: %s\n", formatFlags(s.Flags))
	}
	if len(s.SharedData) > 0 {
		fmt.Fprintf(w, "  shared_data: %s\n", formatShared(s.SharedData))
	}
	if len(s.Calls) > 0 {
		fmt.Fprintf(w, "  calls: %s\n", strings.Join(s.Calls, ", "))
	}
}

func formatFlags(flags map[string]bool) string {
	keys := ir.SortedKeys(flags)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%t", k, flags[k]))
	}
	return strings.Join(parts, " ")
}

func formatShared(shared map[string]any) string {
	parts := make([]string, 0, len(shared))
	for _, k := range ir.SortedKeys(shared) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, shared[k]))
	}
	return strings.Join(parts, " ")
}
