package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/eventloop/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(runID string, status ir.RunStatus) ir.RunRecord {
	return ir.RunRecord{
		RunID:         runID,
		ModuleName:    "test_module",
		GraphHash:     "test-hash",
		Status:        status,
		Steps:         1,
		Flags:         map[string]bool{},
		SharedData:    map[string]any{},
		EngineVersion: ir.EngineVersion,
	}
}

// createTestEvent creates a trace event with minimal required fields.
func createTestEvent(runID string, seq int64, kind ir.TraceKind) ir.TraceEvent {
	return ir.TraceEvent{RunID: runID, Seq: seq, Kind: kind}
}
