package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/eventloop/internal/ir"
)

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	ModuleName string
	GraphHash  string
	Status     ir.RunStatus
	Limit      int
}

const runColumns = `run_id, module_name, graph_hash, status, reason, error_code, error, steps,
	last_event, flags, shared_data, engine_version`

// ReadRun retrieves a single run record by id.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("read run %q: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns run records in the order they were written.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]ir.RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.ModuleName != "" {
		where = append(where, "module_name = ?")
		args = append(args, f.ModuleName)
	}
	if f.GraphHash != "" {
		where = append(where, "graph_hash = ?")
		args = append(args, f.GraphHash)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadTrace returns the trace of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no trace.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]ir.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, event_id, depth, action, detail
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []ir.TraceEvent{}
	for rows.Next() {
		var (
			ev         ir.TraceEvent
			kind, act  string
			detailJSON string
		)
		if err := rows.Scan(&ev.RunID, &ev.Seq, &kind, &ev.EventID, &ev.Depth, &act, &detailJSON); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		ev.Kind = ir.TraceKind(kind)
		ev.Action = ir.ActionType(act)
		detail, err := unmarshalObject(detailJSON)
		if err != nil {
			return nil, fmt.Errorf("trace event %d: %w", ev.Seq, err)
		}
		if len(detail) > 0 {
			ev.Detail = detail
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}

	return events, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.RunRecord, error) {
	var (
		rec                   ir.RunRecord
		status                string
		flagsJSON, sharedJSON string
	)
	err := row.Scan(
		&rec.RunID,
		&rec.ModuleName,
		&rec.GraphHash,
		&status,
		&rec.Reason,
		&rec.ErrorCode,
		&rec.Error,
		&rec.Steps,
		&rec.LastEvent,
		&flagsJSON,
		&sharedJSON,
		&rec.EngineVersion,
	)
	if err == sql.ErrNoRows {
		return ir.RunRecord{}, err
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Status = ir.RunStatus(status)

	if rec.Flags, err = unmarshalFlags(flagsJSON); err != nil {
		return ir.RunRecord{}, err
	}
	if rec.SharedData, err = unmarshalObject(sharedJSON); err != nil {
		return ir.RunRecord{}, err
	}
	return rec, nil
}
