package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventloop/internal/ir"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRun("run-1", ir.StatusFailed)
	rec.Reason = ""
	rec.ErrorCode = "TIMEOUT"
	rec.Error = "TIMEOUT: conditions did not pass within 1s"
	rec.LastEvent = "wait"
	rec.Steps = 3
	rec.Flags = map[string]bool{"a": true, "b": false}
	rec.SharedData = map[string]any{"count": 2.0, "name": "x", "list": []any{"a", 1.0}}

	require.NoError(t, s.WriteRun(ctx, rec))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("run-1", ir.StatusExited)
	first.Reason = "first"
	second := first
	second.Reason = "second"

	require.NoError(t, s.WriteRun(ctx, first))
	require.NoError(t, s.WriteRun(ctx, second), "duplicate write is silently ignored")

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Reason)
}

func TestWriteRun_NilMaps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRun("run-1", ir.StatusExited)
	rec.Flags = nil
	rec.SharedData = nil
	require.NoError(t, s.WriteRun(ctx, rec))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{}, got.Flags)
	assert.Equal(t, map[string]any{}, got.SharedData)
}

type opaque struct {
	X int `json:"x"`
}

func TestWriteRun_NonCanonicalSharedData(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRun("run-1", ir.StatusExited)
	rec.SharedData = map[string]any{"custom": opaque{X: 4}}
	require.NoError(t, s.WriteRun(ctx, rec))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"custom": map[string]any{"x": 4.0}}, got.SharedData)
}

func TestAppendTrace_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("run-1", 1, ir.TraceRunStart)
	require.NoError(t, s.AppendTrace(ctx, ev))
	require.NoError(t, s.AppendTrace(ctx, ev))

	events, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_IsRecorder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, createTestEvent("run-1", 1, ir.TraceRunStart)))
	require.NoError(t, s.Finish(ctx, createTestRun("run-1", ir.StatusExited)))

	events, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = s.ReadRun(ctx, "run-1")
	assert.NoError(t, err)
}
