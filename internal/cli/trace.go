package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventloop/internal/ir"
	"github.com/roach88/eventloop/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	List     bool
	Module   string
	Status   string
	Limit    int
}

// TraceResult holds one stored run and its trace.
type TraceResult struct {
	Run      ir.RunRecord    `json:"run"`
	Timeline []ir.TraceEvent `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for a trace.
type TraceStats struct {
	TotalEvents  int `json:"total_events"`
	EventEntries int `json:"event_entries"`
	Actions      int `json:"actions"`
	Timeouts     int `json:"timeouts"`
	MaxDepth     int `json:"max_depth"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs and their traces",
		Long: `Read runs recorded with run --db.

With --run, prints the run summary and its trace timeline, indented by
event nesting depth. With --list, prints the recorded runs in recording order,
optionally filtered by module and status.

Examples:
  eventloop trace --db ./runs.db --list
  eventloop trace --db ./runs.db --list --status failed --limit 10
  eventloop trace --db ./runs.db --run 0190a6c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	cmd.Flags().StringVar(&opts.Module, "module", "", "with --list, only runs of this module")
	cmd.Flags().StringVar(&opts.Status, "status", "", "with --list, only runs with this status (exited|failed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "with --list, maximum number of runs (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("run", "list")
	cmd.MarkFlagsOneRequired("run", "list")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// store.Open creates missing files; reading needs an existing one.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, formatter, st, opts)
	}
	return showRun(ctx, formatter, st, opts.RunID)
}

func listRuns(ctx context.Context, formatter *OutputFormatter, st *store.Store, opts *TraceOptions) error {
	if opts.Status != "" && opts.Status != string(ir.StatusExited) && opts.Status != string(ir.StatusFailed) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid status %q: must be exited or failed", opts.Status), nil)
	}
	runs, err := st.ListRuns(ctx, store.RunFilter{
		ModuleName: opts.Module,
		Status:     ir.RunStatus(opts.Status),
		Limit:      opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}
	if runs == nil {
		runs = []ir.RunRecord{}
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		outcome := r.Reason
		if r.Status == ir.StatusFailed {
			outcome = r.ErrorCode
		}
		fmt.Fprintf(w, "%s  %-6s  %-20s  steps=%-4d %s\n", r.RunID, r.Status, r.ModuleName, r.Steps, outcome)
	}
	return nil
}

func showRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	events, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read trace", err)
	}
	if events == nil {
		events = []ir.TraceEvent{}
	}

	result := TraceResult{Run: run, Timeline: events, Stats: traceStats(events)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeTrace(formatter, result)
	return nil
}

func traceStats(events []ir.TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case ir.TraceEventEnter:
			stats.EventEntries++
		case ir.TraceAction:
			stats.Actions++
		case ir.TraceTimeout:
			stats.Timeouts++
		}
		stats.MaxDepth = max(stats.MaxDepth, ev.Depth)
	}
	return stats
}

func writeTrace(formatter *OutputFormatter, r TraceResult) {
	w := formatter.Writer
	run := r.Run

	fmt.Fprintf(w, "Run %s (%s)\n", run.RunID, run.ModuleName)
	fmt.Fprintf(w, "  status: %s", run.Status)
	if run.Reason != "" {
		fmt.Fprintf(w, " (%s)", run.Reason)
	}
	fmt.Fprintln(w)
	if run.ErrorCode != "" {
		fmt.Fprintf(w, "  error: %s\n", run.Error)
	}
	fmt.Fprintf(w, "  steps: %d, last event: %s\n", run.Steps, run.LastEvent)
	fmt.Fprintf(w, "  graph: %s\n", run.GraphHash)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for _, ev := range r.Timeline {
		fmt.Fprintf(w, "  %s\n", formatTraceLine(ev))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d trace events, %d event entries, %d actions, %d timeouts\n",
		r.Stats.TotalEvents, r.Stats.EventEntries, r.Stats.Actions, r.Stats.Timeouts)
}

// formatTraceLine renders one trace event indented by its depth.
func formatTraceLine(ev ir.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%3d] ", ev.Seq)
	b.WriteString(strings.Repeat("  ", max(ev.Depth-1, 0)))
	b.WriteString(string(ev.Kind))
	if ev.EventID != "" {
		b.WriteString(" @" + ev.EventID)
	}
	if ev.Action != "" {
		b.WriteString(" " + string(ev.Action))
	}
	for _, k := range ir.SortedKeys(ev.Detail) {
		fmt.Fprintf(&b, " %s=%v", k, ev.Detail[k])
	}
	return b.String()
}
