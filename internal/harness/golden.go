package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/eventloop/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to a map[string]any, since
// ir.MarshalCanonical only handles maps, slices and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	r := s.Result
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		trace[i] = ir.TraceEventMap(ev, false)
	}
	calls := make([]any, len(r.Calls))
	for i, c := range r.Calls {
		calls[i] = c
	}

	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        r.RunID,
		"status":        string(r.Status),
		"steps":         r.Steps,
		"flags":         r.Flags,
		"shared_data":   r.SharedData,
		"calls":         calls,
		"trace":         trace,
	}
	if r.Reason != "" {
		m["reason"] = r.Reason
	}
	if r.ErrorCode != "" {
		m["error_code"] = r.ErrorCode
	}
	if r.LastEvent != "" {
		m["last_event"] = r.LastEvent
	}
	return m
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can assert on it further. Test failure (via
// goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	snapshotJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshotJSON)

	return nil
}
