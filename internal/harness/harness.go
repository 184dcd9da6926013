package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/eventloop/internal/automation"
	"github.com/roach88/eventloop/internal/compiler"
	"github.com/roach88/eventloop/internal/engine"
	"github.com/roach88/eventloop/internal/ir"
	"github.com/roach88/eventloop/internal/store"
	"github.com/roach88/eventloop/internal/testutil"
)

// Harness runs scenarios with a fake wall clock, a fixed run id and a
// fresh in-memory store per scenario.
type Harness struct {
	methods *engine.Registry
	logger  *slog.Logger
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithMethods sets the registry runs resolve call_method and custom
// conditions against. Defaults to engine.NewRegistry().
func WithMethods(r *engine.Registry) HarnessOption {
	return func(h *Harness) {
		h.methods = r
	}
}

// WithLogger sets the logger for runs. Defaults to discarding logs.
func WithLogger(l *slog.Logger) HarnessOption {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...HarnessOption) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	if h.methods == nil {
		h.methods = engine.NewRegistry()
	}
	if h.logger == nil {
		h.logger = testutil.DiscardLogger()
	}
	return h
}

// Run executes a scenario with default options.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Load the scenario's config into a graph
//  2. Build the scripted automation on a fake clock
//  3. Run the graph, recording the trace in memory and in SQLite
//  4. Check the stored trace against the in-memory one
//  5. Check expect and evaluate assertions
//
// An error is returned only when the scenario cannot be executed (bad
// config, store failure). A run that fails or misses its expectations is a
// Result with Pass false.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	loaded, err := compiler.LoadFile(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", scenario.Config, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFakeTime()
	scripted := automation.New(scenario.Script(), clock)
	mem := engine.NewMemoryRecorder()

	opts := []engine.Option{
		engine.WithTimeSource(clock),
		engine.WithRecorder(engine.MultiRecorder{mem, st}),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(h.logger),
	}
	if scenario.MaxSteps != nil {
		opts = append(opts, engine.WithMaxSteps(*scenario.MaxSteps))
	}
	caps := scripted.Capabilities(h.methods)
	caps.Logger = h.logger
	runner, err := engine.NewRunner(caps, opts...)
	if err != nil {
		return nil, err
	}

	if scenario.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		clock.OnSleep(func(elapsed time.Duration) {
			if elapsed >= scenario.Timeout {
				cancel()
			}
		})
	}

	res := runner.Run(ctx, loaded.Graph, scenario.Flags, scenario.SharedData)

	result := NewResult()
	result.RunID = res.RunID
	result.Status = res.Status
	result.Reason = res.Reason
	result.LastEvent = res.LastEvent
	result.Steps = res.Steps
	result.Flags = res.Flags
	result.SharedData = res.SharedData
	result.Trace = mem.EventsFor(res.RunID)
	result.Calls = scripted.Calls()
	if res.Err != nil {
		result.ErrorCode = engine.ErrorCode(res.Err)
		result.Error = res.Err.Error()
	}

	if err := verifyStored(context.WithoutCancel(ctx), st, result); err != nil {
		return nil, err
	}

	for _, msg := range checkExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// verifyStored reads the run back from the store and checks that it holds
// the same trace and outcome the engine produced.
func verifyStored(ctx context.Context, st *store.Store, result *Result) error {
	rec, err := st.ReadRun(ctx, result.RunID)
	if err != nil {
		return fmt.Errorf("read stored run: %w", err)
	}
	if rec.Status != result.Status || rec.Steps != result.Steps || rec.ErrorCode != result.ErrorCode {
		return fmt.Errorf("stored run %s differs: status %s steps %d code %q", rec.RunID, rec.Status, rec.Steps, rec.ErrorCode)
	}

	stored, err := st.ReadTrace(ctx, result.RunID)
	if err != nil {
		return fmt.Errorf("read stored trace: %w", err)
	}
	want, err := ir.TraceDigest(result.Trace)
	if err != nil {
		return err
	}
	got, err := ir.TraceDigest(stored)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("stored trace of run %s differs from the recorded trace", result.RunID)
	}
	return nil
}
