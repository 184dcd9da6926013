package store

import (
	"context"
	"fmt"

	"github.com/roach88/eventloop/internal/ir"
)

// WriteRun inserts a finished run record.
// Uses ON CONFLICT(run_id) DO NOTHING for idempotency - a run is recorded
// once and a duplicate write is silently ignored.
//
// Flags and shared data are stored as canonical JSON.
func (s *Store) WriteRun(ctx context.Context, rec ir.RunRecord) error {
	flagsJSON, err := marshalValue(rec.Flags)
	if err != nil {
		return fmt.Errorf("write run: flags: %w", err)
	}
	sharedJSON, err := marshalValue(orEmpty(rec.SharedData))
	if err != nil {
		return fmt.Errorf("write run: shared data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, module_name, graph_hash, status, reason, error_code, error, steps,
		 last_event, flags, shared_data, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		rec.RunID,
		rec.ModuleName,
		rec.GraphHash,
		string(rec.Status),
		rec.Reason,
		rec.ErrorCode,
		rec.Error,
		rec.Steps,
		rec.LastEvent,
		flagsJSON,
		sharedJSON,
		rec.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// AppendTrace inserts one trace event.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
func (s *Store) AppendTrace(ctx context.Context, ev ir.TraceEvent) error {
	detailJSON, err := marshalValue(orEmpty(ev.Detail))
	if err != nil {
		return fmt.Errorf("append trace: detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, kind, event_id, depth, action, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		string(ev.Kind),
		ev.EventID,
		ev.Depth,
		string(ev.Action),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}

	return nil
}

// Record implements engine.Recorder.
func (s *Store) Record(ctx context.Context, ev ir.TraceEvent) error {
	return s.AppendTrace(ctx, ev)
}

// Finish implements engine.Recorder.
func (s *Store) Finish(ctx context.Context, rec ir.RunRecord) error {
	return s.WriteRun(ctx, rec)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
