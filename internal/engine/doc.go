// Package engine executes event graphs.
//
// A run walks the graph one event at a time. For each event the Runner
// pushes a current-event frame, polls the event's conditions until they
// pass or the event's deadline passes, executes its actions, and picks the
// next event:
//
//	goto set during the actions  >  next_event  >  exit
//
// A timed-out event moves to its on_timeout event, or fails the run with a
// TIMEOUT error when it has none. An exit action ends the run at once from
// any nesting depth.
//
// ARCHITECTURE:
//
// Capabilities:
// Everything that touches the outside world (screen, input, OCR, element
// lookup, named methods, logging) arrives through the Capabilities bundle
// at construction. The engine has no process-wide registries.
//
// Run State:
// A State holds one run's flags, shared data, frame stack and pending goto.
// It is never shared between runs, so concurrent runs on one Runner do not
// interfere.
//
// Traces:
// Every step is recorded as an ir.TraceEvent stamped from a per-run logical
// Clock. Wall-clock time drives deadlines and polling only and never orders
// the trace, so a run against scripted capabilities replays to the same
// trace.
//
// CRITICAL PATTERNS:
//
// Frame Guard:
// Push returns a guard that restores the stack depth. Every push is paired
// with a deferred pop so no exit path (signal, error, cancellation) leaves
// a stale frame behind.
//
// Fail Loudly:
// Unknown events, methods, predicates and action variants are errors, never
// silent no-ops.
package engine
