package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventloop/internal/ir"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadTrace_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Written out of order on purpose.
	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.AppendTrace(ctx, createTestEvent("run-1", seq, ir.TraceAction)))
	}
	require.NoError(t, s.AppendTrace(ctx, createTestEvent("run-2", 1, ir.TraceRunStart)))

	events, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, "run-1", ev.RunID)
	}
}

func TestReadTrace_RoundTripsFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := ir.TraceEvent{
		RunID:   "run-1",
		Seq:     7,
		Kind:    ir.TraceAction,
		EventID: "login",
		Depth:   2,
		Action:  ir.ActClick,
		Detail:  map[string]any{"element": "text:Start", "clicked": true, "index": 1},
	}
	require.NoError(t, s.AppendTrace(ctx, ev))

	events, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, ev.Depth, got.Depth)
	assert.Equal(t, ev.Action, got.Action)
	assert.Equal(t, map[string]any{"element": "text:Start", "clicked": true, "index": 1.0}, got.Detail)
}

func TestReadTrace_DigestSurvivesStorage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original := []ir.TraceEvent{
		{RunID: "run-1", Seq: 1, Kind: ir.TraceRunStart, Detail: map[string]any{"initial_event": "a"}},
		{RunID: "run-1", Seq: 2, Kind: ir.TraceEventEnter, EventID: "a", Depth: 1, Detail: map[string]any{"timeout": 30.0}},
		{RunID: "run-1", Seq: 3, Kind: ir.TraceBlockMatch, EventID: "a", Depth: 1, Detail: map[string]any{"index": 0}},
		{RunID: "run-1", Seq: 4, Kind: ir.TraceRunEnd},
	}
	for _, ev := range original {
		require.NoError(t, s.AppendTrace(ctx, ev))
	}

	stored, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)

	want, err := ir.TraceDigest(original)
	require.NoError(t, err)
	got, err := ir.TraceDigest(stored)
	require.NoError(t, err)
	assert.Equal(t, want, got, "int details read back as float64 but hash identically")
}

func TestReadTrace_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadTrace(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestListRuns_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestRun("run-a", ir.StatusExited)
	b := createTestRun("run-b", ir.StatusFailed)
	c := createTestRun("run-c", ir.StatusExited)
	c.ModuleName = "other"
	c.GraphHash = "other-hash"
	for _, rec := range []ir.RunRecord{a, b, c} {
		require.NoError(t, s.WriteRun(ctx, rec))
	}

	ids := func(runs []ir.RunRecord) []string {
		out := make([]string, len(runs))
		for i, r := range runs {
			out[i] = r.RunID
		}
		return out
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, ids(all), "write order")

	byModule, err := s.ListRuns(ctx, RunFilter{ModuleName: "test_module"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids(byModule))

	failed, err := s.ListRuns(ctx, RunFilter{Status: ir.StatusFailed})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-b"}, ids(failed))

	byHash, err := s.ListRuns(ctx, RunFilter{GraphHash: "other-hash"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-c"}, ids(byHash))

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids(limited))

	none, err := s.ListRuns(ctx, RunFilter{ModuleName: "nope"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
