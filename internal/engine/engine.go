package engine

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/roach88/eventloop/internal/ir"
)

// DefaultPollInterval is the pause between condition checks while an event
// waits for its conditions.
const DefaultPollInterval = 100 * time.Millisecond

// ReasonCancelled is the exit reason of a run whose context was cancelled.
const ReasonCancelled = "cancelled"

// Runner drives event graphs to a terminal result.
//
// A Runner holds only configuration and capabilities. All mutable state of
// a run lives in that run's State, so one Runner may execute any number of
// runs concurrently as long as its capabilities and Recorder allow it.
//
// INVARIANTS:
//   - a run is sequential: at most one event is polled or executed at a time
//   - a run ends in exactly one terminal result (exited or failed)
//   - the frame stack is empty when Run returns
type Runner struct {
	caps         Capabilities
	maxSteps     int
	pollInterval time.Duration
	time         TimeSource
	recorder     Recorder
	runIDs       RunIDGenerator
	logger       *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxSteps sets the maximum number of event entries per run.
//
// Default: 1000 (DefaultMaxSteps). 0 disables the limit.
func WithMaxSteps(maxSteps int) Option {
	return func(r *Runner) {
		r.maxSteps = maxSteps
	}
}

// WithPollInterval sets the pause between condition checks.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithTimeSource replaces the wall clock used for deadlines and polling.
func WithTimeSource(ts TimeSource) Option {
	return func(r *Runner) {
		r.time = ts
	}
}

// WithRecorder sets where traces and run records go.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(r *Runner) {
		r.runIDs = gen
	}
}

// WithLogger sets the logger used for the engine's own diagnostics. The
// log action always writes to the Logger capability.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner. Automation and Locator are required.
func NewRunner(caps Capabilities, opts ...Option) (*Runner, error) {
	caps, err := caps.withDefaults()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		caps:         caps,
		maxSteps:     DefaultMaxSteps,
		pollInterval: DefaultPollInterval,
		time:         SystemTime{},
		recorder:     nopRecorder{},
		runIDs:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = caps.Logger
	}
	return r, nil
}

// Result is the terminal result of a run.
type Result struct {
	RunID  string
	Status ir.RunStatus
	// Reason is the exit reason; empty when the graph simply ran out of
	// transitions.
	Reason string
	// Err is set when Status is failed.
	Err        error
	Flags      map[string]bool
	SharedData map[string]any
	// Steps counts event entries.
	Steps     int
	LastEvent string
}

// Record converts the result into the persisted run summary.
func (res *Result) Record(g *ir.Graph) ir.RunRecord {
	rec := ir.RunRecord{
		RunID:         res.RunID,
		ModuleName:    g.ModuleName(),
		GraphHash:     g.Hash(),
		Status:        res.Status,
		Reason:        res.Reason,
		Steps:         res.Steps,
		LastEvent:     res.LastEvent,
		Flags:         res.Flags,
		SharedData:    res.SharedData,
		EngineVersion: ir.EngineVersion,
	}
	if res.Err != nil {
		rec.ErrorCode = ErrorCode(res.Err)
		rec.Error = res.Err.Error()
	}
	return rec
}

// Run executes g from its initial event until the run exits or fails.
//
// The run starts from the graph's declared flags and shared data with the
// given maps laid over them; the caller's maps are not modified. Run never
// returns a nil Result: failures are reported through Result.Err.
func (r *Runner) Run(ctx context.Context, g *ir.Graph, flags map[string]bool, shared map[string]any) *Result {
	initFlags := g.InitialFlags()
	maps.Copy(initFlags, flags)
	initShared := g.InitialSharedData()
	maps.Copy(initShared, shared)

	rn := &run{
		r:     r,
		g:     g,
		st:    NewState(initFlags, initShared),
		id:    r.runIDs.Generate(),
		clock: NewClock(),
		quota: NewQuotaEnforcer(r.maxSteps),
	}
	rn.in = newInterp(r.caps, rn.st, rn.id, rn.record)

	start := map[string]any{"initial_event": g.InitialEvent()}
	if g.ModuleName() != "" {
		start["module"] = g.ModuleName()
	}
	if g.Hash() != "" {
		start["graph_hash"] = g.Hash()
	}
	rn.record(ctx, ir.TraceRunStart, "", start)
	r.logger.Info("run started", "run_id", rn.id, "module", g.ModuleName(), "initial_event", g.InitialEvent())

	res := rn.loop(ctx)

	end := map[string]any{"status": string(res.Status), "steps": res.Steps}
	if res.Reason != "" {
		end["reason"] = res.Reason
	}
	if res.Err != nil {
		end["error_code"] = ErrorCode(res.Err)
	}
	rn.record(ctx, ir.TraceRunEnd, "", end)

	if err := r.recorder.Finish(context.WithoutCancel(ctx), res.Record(g)); err != nil {
		r.logger.Error("run record failed", "run_id", rn.id, "error", err)
	}
	if res.Err != nil {
		r.logger.Error("run failed", "run_id", rn.id, "event_id", res.LastEvent, "code", ErrorCode(res.Err), "error", res.Err)
	} else {
		r.logger.Info("run exited", "run_id", rn.id, "reason", res.Reason, "steps", res.Steps)
	}
	return res
}

// run is the per-run bookkeeping of a Runner.
type run struct {
	r     *Runner
	g     *ir.Graph
	st    *State
	in    *interp
	id    string
	clock *Clock
	quota *QuotaEnforcer

	steps     int
	lastEvent string
}

// record stamps and forwards one trace event. Recording outlives
// cancellation so a cancelled run still leaves a complete trace.
func (rn *run) record(ctx context.Context, kind ir.TraceKind, action ir.ActionType, detail map[string]any) {
	ev := ir.TraceEvent{
		RunID:   rn.id,
		Seq:     rn.clock.Next(),
		Kind:    kind,
		EventID: rn.st.CurrentEvent(),
		Depth:   rn.st.Depth(),
		Action:  action,
		Detail:  detail,
	}
	if err := rn.r.recorder.Record(context.WithoutCancel(ctx), ev); err != nil {
		rn.r.logger.Error("trace record failed", "run_id", rn.id, "seq", ev.Seq, "error", err)
	}
}

func (rn *run) loop(ctx context.Context) *Result {
	current := rn.g.InitialEvent()
	for {
		if ctx.Err() != nil {
			return rn.exited(ctx, ReasonCancelled)
		}

		next, sig, err := rn.step(ctx, current)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return rn.exited(ctx, ReasonCancelled)
			}
			return rn.result(ir.StatusFailed, "", err)
		case sig.Kind == SignalExit:
			return rn.exited(ctx, sig.Reason)
		case next == "":
			return rn.exited(ctx, "")
		}

		rn.r.logger.Debug("transition", "run_id", rn.id, "from", current, "to", next)
		current = next
	}
}

func (rn *run) exited(ctx context.Context, reason string) *Result {
	rn.record(ctx, ir.TraceExit, "", map[string]any{"reason": reason})
	return rn.result(ir.StatusExited, reason, nil)
}

func (rn *run) result(status ir.RunStatus, reason string, err error) *Result {
	return &Result{
		RunID:      rn.id,
		Status:     status,
		Reason:     reason,
		Err:        err,
		Flags:      rn.st.Flags(),
		SharedData: rn.st.SharedData(),
		Steps:      rn.steps,
		LastEvent:  rn.lastEvent,
	}
}

// step enters one top-level event and returns the id of the next one.
// An empty next with a nil error and no exit signal means the graph has
// no further transition.
func (rn *run) step(ctx context.Context, id string) (next string, sig Signal, err error) {
	ev, err := rn.g.Get(id)
	if err != nil {
		re := NewUnknownEventError(id, err)
		re.RunID = rn.id
		re.EventID = rn.lastEvent
		return "", Signal{}, re
	}
	if rn.r.maxSteps > 0 {
		if err := rn.quota.Check(rn.id); err != nil {
			return "", Signal{}, err
		}
	}
	rn.steps++
	rn.lastEvent = id

	pop := rn.st.Push(id)
	defer pop()
	rn.record(ctx, ir.TraceEventEnter, "", map[string]any{"timeout": ev.Timeout.Seconds()})
	rn.r.logger.Debug("event enter", "run_id", rn.id, "event_id", id)

	passed, err := rn.poll(ctx, ev)
	if err != nil {
		return "", Signal{}, err
	}
	if !passed {
		if ev.OnTimeout != "" {
			rn.record(ctx, ir.TraceTimeout, "", map[string]any{"on_timeout": ev.OnTimeout})
			rn.r.logger.Warn("event timed out", "run_id", rn.id, "event_id", id, "on_timeout", ev.OnTimeout)
			return ev.OnTimeout, Signal{Kind: SignalContinue}, nil
		}
		rn.record(ctx, ir.TraceTimeout, "", nil)
		rn.r.logger.Warn("event timed out", "run_id", rn.id, "event_id", id)
		te := NewTimeoutError(id, ev.Timeout)
		te.RunID = rn.id
		return "", Signal{}, te
	}
	rn.record(ctx, ir.TraceConditionsPassed, "", nil)

	sig, err = rn.in.execute(ctx, ev.Actions)
	// The slot is cleared on every path so a goto never leaks into the
	// next event.
	target, hasGoto := rn.st.ConsumeGoto()
	if err != nil {
		return "", Signal{}, err
	}
	if sig.Kind == SignalExit {
		return "", sig, nil
	}
	if hasGoto {
		rn.record(ctx, ir.TraceGoto, "", map[string]any{"target": target})
		return target, Signal{Kind: SignalContinue}, nil
	}
	return ev.NextEvent, Signal{Kind: SignalContinue}, nil
}

// poll checks the event's conditions until they pass or its deadline
// passes. Conditions are always checked at least once, even with a zero
// timeout. Sleeps never extend past the deadline.
func (rn *run) poll(ctx context.Context, ev *ir.Event) (bool, error) {
	clock := rn.r.time
	deadline := clock.Now().Add(ev.Timeout)
	for {
		ok, err := rn.in.evaluate(ctx, ev.Conditions)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		now := clock.Now()
		if !now.Before(deadline) {
			return false, nil
		}
		if err := clock.Sleep(ctx, min(rn.r.pollInterval, deadline.Sub(now))); err != nil {
			return false, err
		}
	}
}
