package harness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventloop/internal/automation"
	"github.com/roach88/eventloop/internal/engine"
	"github.com/roach88/eventloop/internal/ir"
	"github.com/roach88/eventloop/internal/testutil"
)

func enterGame(t *testing.T) *Scenario {
	t.Helper()
	cfg, err := filepath.Abs("../../testdata/configs/enter_game.json")
	require.NoError(t, err)
	return &Scenario{
		Name:        "enter_game_inline",
		Description: "built in the test",
		Config:      cfg,
		RunID:       "run-inline",
		Screen:      []automation.ScreenItem{{Element: "text:Start"}},
		Expect:      ExpectClause{Status: ir.StatusExited},
	}
}

func TestRun_Passes(t *testing.T) {
	s := enterGame(t)
	s.Assertions = []Assertion{
		{Type: AssertTraceOrder, Events: []string{"start", "finish"}},
		{Type: AssertAutomationCalls, Calls: []string{"click:text:Start"}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "run-inline", result.RunID)
	assert.Equal(t, ir.StatusExited, result.Status)
	assert.Equal(t, "done", result.Reason)
	assert.Equal(t, 2, result.Steps)
	assert.True(t, result.Flags["entered"])
	require.NotEmpty(t, result.Trace)
	assert.Equal(t, ir.TraceRunStart, result.Trace[0].Kind)
	assert.Equal(t, ir.TraceRunEnd, result.Trace[len(result.Trace)-1].Kind)
}

func TestRun_DefaultRunID(t *testing.T) {
	s := enterGame(t)
	s.RunID = ""

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "test-run-default", result.RunID)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := enterGame(t)
	reason := "something else"
	s.Expect.Reason = &reason

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{`expect.reason: want "something else", got "done"`}, result.Errors)
}

func TestRun_AssertionFailureFails(t *testing.T) {
	s := enterGame(t)
	s.Assertions = []Assertion{{Type: AssertTraceCount, Kind: ir.TraceTimeout, Count: 1}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: trace_count")
}

func TestRun_FailedRun(t *testing.T) {
	s := enterGame(t)
	s.Screen = nil
	zero := 0
	s.MaxSteps = &zero
	s.Timeout = 0
	s.Failures = map[string]string{"press_key:esc": "keyboard gone"}
	code := "CAPABILITY_FAILED"
	s.Expect = ExpectClause{Status: ir.StatusFailed, ErrorCode: &code}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "retry", result.LastEvent)
	assert.Contains(t, result.Error, "keyboard gone")
}

func TestRun_BadConfig(t *testing.T) {
	s := enterGame(t)
	s.Config = filepath.Join(t.TempDir(), "missing.json")

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestHarness_WithMethods(t *testing.T) {
	methods := engine.NewRegistry()
	var called int
	methods.Register("incr_shared", func(_ context.Context, st *engine.State, _ map[string]any) (any, error) {
		called++
		st.SetShared("attempts", "custom")
		return nil, nil
	})

	s := enterGame(t)
	s.Screen = []automation.ScreenItem{{Element: "text:Start", VisibleAfter: 6 * time.Second}}
	s.Expect.SharedData = map[string]any{"attempts": "custom"}

	h := New(WithMethods(methods), WithLogger(testutil.DiscardLogger()))
	result, err := h.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, called)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenariosDir, "daily_rewards_claim.yaml"))
	require.NoError(t, err)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	d1, err := ir.TraceDigest(first.Trace)
	require.NoError(t, err)
	d2, err := ir.TraceDigest(second.Trace)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, first.Calls, second.Calls)
}
