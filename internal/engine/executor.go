package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/eventloop/internal/ir"
)

// SignalKind is the control-flow outcome of an action list.
type SignalKind int

const (
	// SignalContinue: the list ran to completion.
	SignalContinue SignalKind = iota
	// SignalGoto: a goto set the next event (Execute only).
	SignalGoto
	// SignalExit: an exit action ended the list and every enclosing list.
	SignalExit
)

func (k SignalKind) String() string {
	switch k {
	case SignalContinue:
		return "continue"
	case SignalGoto:
		return "goto"
	case SignalExit:
		return "exit"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// Signal is returned by action execution.
type Signal struct {
	Kind   SignalKind
	Target string // SignalGoto
	Reason string // SignalExit, may be empty
}

// traceFunc records one trace event at the current frame.
type traceFunc func(ctx context.Context, kind ir.TraceKind, action ir.ActionType, detail map[string]any)

// interp evaluates conditions and executes actions against one run's State.
type interp struct {
	caps  Capabilities
	st    *State
	runID string
	trace traceFunc
}

func newInterp(caps Capabilities, st *State, runID string, trace traceFunc) *interp {
	if trace == nil {
		trace = func(context.Context, ir.TraceKind, ir.ActionType, map[string]any) {}
	}
	return &interp{caps: caps, st: st, runID: runID, trace: trace}
}

// annotate stamps a RuntimeError with the run and innermost event, keeping
// values set closer to the failure.
func (in *interp) annotate(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.EventID == "" {
			re.EventID = in.st.CurrentEvent()
		}
		if re.RunID == "" {
			re.RunID = in.runID
		}
	}
	return err
}

// Execute runs actions in order against st.
//
// It returns SignalExit as soon as an exit action runs, anywhere in the
// nesting. Otherwise a goto left pending by the list is consumed and
// returned as SignalGoto; with no goto the result is SignalContinue.
func Execute(ctx context.Context, actions []ir.Action, st *State, caps Capabilities) (Signal, error) {
	caps, err := caps.withDefaults()
	if err != nil {
		return Signal{}, err
	}
	in := newInterp(caps, st, "", nil)
	sig, err := in.execute(ctx, actions)
	target, hasGoto := st.ConsumeGoto()
	if err != nil || sig.Kind == SignalExit {
		return sig, err
	}
	if hasGoto {
		return Signal{Kind: SignalGoto, Target: target}, nil
	}
	return sig, nil
}

// execute runs a list and returns SignalContinue or SignalExit.
func (in *interp) execute(ctx context.Context, actions []ir.Action) (Signal, error) {
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return Signal{}, err
		}
		sig, err := in.action(ctx, a)
		if err != nil {
			return Signal{}, in.annotate(err)
		}
		if sig.Kind == SignalExit {
			return sig, nil
		}
	}
	return Signal{Kind: SignalContinue}, nil
}

func (in *interp) action(ctx context.Context, a ir.Action) (Signal, error) {
	auto := in.caps.Automation
	cont := Signal{Kind: SignalContinue}

	switch act := a.(type) {
	case ir.ScreenshotAction:
		if err := auto.Screenshot(ctx); err != nil {
			return cont, NewCapabilityError("screenshot", err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), nil)

	case ir.FindAction:
		loc, err := auto.Find(ctx, act.Element)
		if err != nil {
			return cont, NewCapabilityError("find "+act.Element.Key(), err)
		}
		detail := map[string]any{"element": act.Element.Key(), "found": loc != nil}
		if loc != nil {
			detail["x"], detail["y"] = loc.X, loc.Y
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), detail)

	case ir.OCRAction:
		crop := ir.FullFrame()
		if act.Crop != nil {
			crop = *act.Crop
		}
		text, err := auto.OCR(ctx, crop, act.Extract)
		if err != nil {
			return cont, NewCapabilityError("ocr", err)
		}
		detail := map[string]any{"crop": crop.String(), "text": text}
		if act.StoreAs != "" {
			in.st.SetShared(act.StoreAs, text)
			detail["store_as"] = act.StoreAs
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), detail)

	case ir.ClickAction:
		clicked, err := auto.Click(ctx, act.Element, ClickOptions{Mode: act.Mode, Attempts: act.Attempts})
		if err != nil {
			return cont, NewCapabilityError("click "+act.Element.Key(), err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"element": act.Element.Key(), "clicked": clicked})

	case ir.PressKeyAction:
		if err := auto.PressKey(ctx, act.Key); err != nil {
			return cont, NewCapabilityError("press_key "+act.Key, err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"key": act.Key})

	case ir.WaitAction:
		if err := auto.Wait(ctx, act.Duration); err != nil {
			return cont, NewCapabilityError("wait", err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"seconds": act.Duration.Seconds()})

	case ir.TypeTextAction:
		if err := auto.TypeText(ctx, act.Text); err != nil {
			return cont, NewCapabilityError("type_text", err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"text": act.Text})

	case ir.LogAction:
		in.caps.Logger.Log(ctx, logLevel(act.Level), act.Message,
			"run_id", in.runID,
			"event_id", in.st.CurrentEvent(),
		)
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"level": act.Level, "message": act.Message})

	case ir.SetFlagAction:
		in.st.SetFlag(act.Flag, act.Value)
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"flag": act.Flag, "value": act.Value})

	case ir.CallMethodAction:
		m, err := in.caps.Methods.Method(act.Method)
		if err != nil {
			return cont, err
		}
		// The return value is deliberately dropped; methods that want to
		// publish results write shared data through the State.
		if _, err := m(ctx, in.st, ir.CloneMap(act.Params)); err != nil {
			return cont, wrapCallError("method "+act.Method, err)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"method": act.Method})

	case ir.GotoAction:
		target := act.EventID
		detail := map[string]any{}
		if act.FromShared != "" {
			v, ok := in.st.Shared(act.FromShared)
			s, isString := v.(string)
			if !ok || !isString || s == "" {
				return cont, NewInvalidParamsError("goto from_shared %q: shared data holds %T, want a non-empty event id", act.FromShared, v)
			}
			target = s
			detail["from_shared"] = act.FromShared
		}
		in.st.SetGoto(target)
		detail["target"] = target
		in.trace(ctx, ir.TraceAction, act.Kind(), detail)

	case ir.ExitAction:
		if act.Reason != "" {
			in.caps.Logger.Info("exit requested", "run_id", in.runID, "event_id", in.st.CurrentEvent(), "reason", act.Reason)
		}
		in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"reason": act.Reason})
		return Signal{Kind: SignalExit, Reason: act.Reason}, nil

	case ir.InlineEventAction:
		return in.inline(ctx, act)

	case ir.ConditionalBlocksAction:
		return in.blocks(ctx, act)

	default:
		return cont, &RuntimeError{
			Code:    ErrCodeUnknownAction,
			Message: fmt.Sprintf("cannot execute action %T", a),
		}
	}
	return cont, nil
}

// inline runs a nested event in place, once. Its conditions are checked a
// single time without polling; its timeout and transitions are ignored. The
// frame pushed for it is popped on every path before the signal returns.
func (in *interp) inline(ctx context.Context, act ir.InlineEventAction) (Signal, error) {
	ev := act.Event
	if ev == nil {
		return Signal{}, &RuntimeError{Code: ErrCodeUnknownAction, Message: "inline_event action has no event"}
	}
	in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"event": ev.ID})

	pop := in.st.Push(ev.ID)
	defer pop()
	in.trace(ctx, ir.TraceInlineEnter, "", nil)

	ok, err := in.evaluate(ctx, ev.Conditions)
	if err != nil {
		return Signal{}, err
	}
	if !ok {
		in.trace(ctx, ir.TraceInlineSkip, "", nil)
		return Signal{Kind: SignalContinue}, nil
	}

	sig, err := in.execute(ctx, ev.Actions)
	if err != nil {
		return Signal{}, err
	}
	in.trace(ctx, ir.TraceInlineExit, "", map[string]any{"signal": sig.Kind.String()})
	return sig, nil
}

// blocks runs the first block whose conditions pass. Later blocks are not
// evaluated. No match is a no-op.
func (in *interp) blocks(ctx context.Context, act ir.ConditionalBlocksAction) (Signal, error) {
	in.trace(ctx, ir.TraceAction, act.Kind(), map[string]any{"blocks": len(act.Blocks)})

	for i, b := range act.Blocks {
		ok, err := in.evaluate(ctx, b.Conditions)
		if err != nil {
			return Signal{}, err
		}
		if !ok {
			continue
		}
		detail := map[string]any{"index": i}
		if b.Description != "" {
			detail["description"] = b.Description
		}
		in.trace(ctx, ir.TraceBlockMatch, "", detail)
		return in.execute(ctx, b.Actions)
	}
	return Signal{Kind: SignalContinue}, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
