package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/eventloop/internal/ir"
)

// Recorder receives the trace of every run.
//
// Record is called once per trace event in seq order; Finish is called once
// when the run ends. A Recorder may be shared by concurrent runs and must be
// safe for concurrent use. Recorder failures are logged and never change a
// run's outcome.
type Recorder interface {
	Record(ctx context.Context, ev ir.TraceEvent) error
	Finish(ctx context.Context, rec ir.RunRecord) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, ir.TraceEvent) error { return nil }
func (nopRecorder) Finish(context.Context, ir.RunRecord) error  { return nil }

// MemoryRecorder keeps traces and run records in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []ir.TraceEvent
	runs   []ir.RunRecord
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(_ context.Context, ev ir.TraceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryRecorder) Finish(_ context.Context, rec ir.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return nil
}

// Events returns every recorded trace event in arrival order.
func (m *MemoryRecorder) Events() []ir.TraceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// EventsFor returns the trace of one run.
func (m *MemoryRecorder) EventsFor(runID string) []ir.TraceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ir.TraceEvent
	for _, ev := range m.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	return out
}

// Runs returns the finished run records in completion order.
func (m *MemoryRecorder) Runs() []ir.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.runs)
}

// MultiRecorder fans out to several recorders. The first error wins but
// every recorder is called.
type MultiRecorder []Recorder

func (mr MultiRecorder) Record(ctx context.Context, ev ir.TraceEvent) error {
	var first error
	for _, r := range mr {
		if err := r.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (mr MultiRecorder) Finish(ctx context.Context, rec ir.RunRecord) error {
	var first error
	for _, r := range mr {
		if err := r.Finish(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
