package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/algox/ruling-class-sub004/internal/audit"
)

// ReadRun returns every record of a run in execution order:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the run has no records.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, kind, unit, outcome, params, error, code, duration_ns
		FROM audit_records
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []audit.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadUnitHistory returns every record for a unit across runs, ordered by
// run then seq.
func (s *Store) ReadUnitHistory(ctx context.Context, kind audit.Kind, unit string) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, kind, unit, outcome, params, error, code, duration_ns
		FROM audit_records
		WHERE kind = ? AND unit = ?
		ORDER BY run_id COLLATE BINARY ASC, seq ASC, id COLLATE BINARY ASC
	`, string(kind), unit)
	if err != nil {
		return nil, fmt.Errorf("query unit history: %w", err)
	}
	defer rows.Close()

	records := []audit.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit history: %w", err)
	}
	return records, nil
}

// ReadRunSummary returns the summary row for a run, or ErrRunNotFound.
func (s *Store) ReadRunSummary(ctx context.Context, runID string) (RunSummary, error) {
	var run RunSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, runnable, outcome, error, code
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.Runnable, &run.Outcome, &run.Error, &run.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns every run ID that has records or a summary, sorted.
// UUIDv7 run IDs sort in creation order.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM runs
		UNION
		SELECT DISTINCT run_id FROM audit_records
		ORDER BY run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRecord(rows *sql.Rows) (audit.Record, error) {
	var (
		rec        audit.Record
		kind       string
		params     string
		durationNS int64
	)
	if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Seq, &kind, &rec.Unit, &rec.Outcome,
		&params, &rec.Error, &rec.Code, &durationNS); err != nil {
		return audit.Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Kind = audit.Kind(kind)
	rec.Duration = time.Duration(durationNS)

	if params != "" && params != "{}" {
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return audit.Record{}, fmt.Errorf("unmarshal params for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
