package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/eventloop/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", formatTraceEvent(ev))
		}
	}

	return buf.String()
}

func formatTraceEvent(ev ir.TraceEvent) string {
	s := fmt.Sprintf("[%d] %s%s", ev.Seq, strings.Repeat("  ", max(ev.Depth-1, 0)), ev.Kind)
	if ev.EventID != "" {
		s += " @" + ev.EventID
	}
	if ev.Action != "" {
		s += " " + string(ev.Action)
	}
	if len(ev.Detail) > 0 {
		s += fmt.Sprintf(" %v", ev.Detail)
	}
	return s
}

// matchEvent reports whether ev matches the assertion's kind, event and
// action filters. Empty filters match anything.
func matchEvent(ev ir.TraceEvent, a Assertion) bool {
	if a.Kind != "" && ev.Kind != a.Kind {
		return false
	}
	if a.Event != "" && ev.EventID != a.Event {
		return false
	}
	if a.Action != "" && ev.Action != a.Action {
		return false
	}
	return true
}

func describe(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, "kind="+string(a.Kind))
	}
	if a.Event != "" {
		parts = append(parts, "event="+a.Event)
	}
	if a.Action != "" {
		parts = append(parts, "action="+string(a.Action))
	}
	if len(a.Detail) > 0 {
		parts = append(parts, fmt.Sprintf("detail=%v", a.Detail))
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that some trace event matches the filters and
// carries the expected detail (subset match). trace_contains matches action
// events unless a kind is given.
func assertTraceContains(trace []ir.TraceEvent, a Assertion) error {
	if a.Kind == "" {
		a.Kind = ir.TraceAction
	}
	for _, ev := range trace {
		if matchEvent(ev, a) && matchDetail(ev.Detail, a.Detail) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// entered lists the event ids the run entered, top level and inline, in
// order.
func entered(trace []ir.TraceEvent) []string {
	var ids []string
	for _, ev := range trace {
		if ev.Kind == ir.TraceEventEnter || ev.Kind == ir.TraceInlineEnter {
			ids = append(ids, ev.EventID)
		}
	}
	return ids
}

// assertTraceOrder checks that the events were entered in the given order.
// Entries don't need to be consecutive (intervening entries are allowed).
func assertTraceOrder(trace []ir.TraceEvent, a Assertion) error {
	ids := entered(trace)
	if missing, ok := subsequence(ids, a.Events); !ok {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("events entered in order: %v", a.Events),
			Actual:   fmt.Sprintf("entered %v; %q not found in order", ids, missing),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks the number of trace events matching the filters.
func assertTraceCount(trace []ir.TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchEvent(ev, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertAutomationCalls checks the calls the scripted automation received.
func assertAutomationCalls(calls []string, a Assertion) error {
	if a.Exact {
		if !reflect.DeepEqual(calls, a.Calls) {
			return &AssertionError{
				Type:     AssertAutomationCalls,
				Expected: fmt.Sprintf("exactly %v", a.Calls),
				Actual:   fmt.Sprintf("%v", calls),
			}
		}
		return nil
	}
	if missing, ok := subsequence(calls, a.Calls); !ok {
		return &AssertionError{
			Type:     AssertAutomationCalls,
			Expected: fmt.Sprintf("calls in order: %v", a.Calls),
			Actual:   fmt.Sprintf("%v; %q not found in order", calls, missing),
		}
	}
	return nil
}

// subsequence reports whether want appears in got in order. On failure it
// returns the first element of want that could not be matched.
func subsequence(got, want []string) (string, bool) {
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}
	if i < len(want) {
		return want[i], false
	}
	return "", true
}

// matchDetail checks if actual contains all expected keys (subset match).
// Extra keys in actual are ignored.
func matchDetail(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values by their canonical JSON form, so YAML
// integers equal engine floats of the same value. Values canonical JSON
// cannot encode fall back to reflect.DeepEqual.
func valuesEqual(actual, expected any) bool {
	a, errA := ir.MarshalCanonical(actual)
	e, errE := ir.MarshalCanonical(expected)
	if errA != nil || errE != nil {
		return reflect.DeepEqual(actual, expected)
	}
	return string(a) == string(e)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertAutomationCalls:
			err = assertAutomationCalls(result.Calls, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// checkExpect compares the terminal result against the expect clause.
func checkExpect(result *Result, exp ExpectClause) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expect.%s: want %v, got %v", field, want, got))
	}

	if exp.Status != "" && result.Status != exp.Status {
		mismatch("status", exp.Status, result.Status)
	}
	if exp.Reason != nil && result.Reason != *exp.Reason {
		mismatch("reason", fmt.Sprintf("%q", *exp.Reason), fmt.Sprintf("%q", result.Reason))
	}
	if exp.ErrorCode != nil && result.ErrorCode != *exp.ErrorCode {
		mismatch("error_code", fmt.Sprintf("%q", *exp.ErrorCode), fmt.Sprintf("%q (%s)", result.ErrorCode, result.Error))
	}
	if exp.LastEvent != nil && result.LastEvent != *exp.LastEvent {
		mismatch("last_event", fmt.Sprintf("%q", *exp.LastEvent), fmt.Sprintf("%q", result.LastEvent))
	}
	if exp.Steps != nil && result.Steps != *exp.Steps {
		mismatch("steps", *exp.Steps, result.Steps)
	}
	for _, k := range ir.SortedKeys(exp.Flags) {
		if got := result.Flags[k]; got != exp.Flags[k] {
			mismatch("flags."+k, exp.Flags[k], got)
		}
	}
	for _, k := range ir.SortedKeys(exp.SharedData) {
		got, ok := result.SharedData[k]
		if !ok {
			mismatch("shared_data."+k, exp.SharedData[k], "<missing>")
			continue
		}
		if !valuesEqual(got, exp.SharedData[k]) {
			mismatch("shared_data."+k, exp.SharedData[k], got)
		}
	}
	return errs
}
