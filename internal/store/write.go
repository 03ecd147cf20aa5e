package store

import (
	"context"
	"fmt"

	"github.com/algox/ruling-class-sub004/internal/audit"
)

// RunSummary is the final state of one run.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Runnable string `json:"runnable"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

// WriteRecord inserts an audit record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; a record without an ID
// is finalized first.
func (s *Store) WriteRecord(ctx context.Context, rec audit.Record) error {
	if rec.ID == "" {
		rec = rec.Finalize()
		if rec.ID == "" {
			return fmt.Errorf("write record %s/%d: cannot compute record id", rec.RunID, rec.Seq)
		}
	}

	params, err := marshalParams(rec.Params)
	if err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records
		(id, run_id, seq, kind, unit, outcome, params, error, code, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.Seq,
		string(rec.Kind),
		rec.Unit,
		rec.Outcome,
		params,
		rec.Error,
		rec.Code,
		rec.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	return nil
}

// WriteRun stores or replaces the summary for a run. A run is summarized
// once it finishes, so a later write wins.
func (s *Store) WriteRun(ctx context.Context, run RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("write run: run id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, runnable, outcome, error, code)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			runnable = excluded.runnable,
			outcome = excluded.outcome,
			error = excluded.error,
			code = excluded.code
	`, run.RunID, run.Runnable, run.Outcome, run.Error, run.Code)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.RunID, err)
	}
	return nil
}

// marshalParams stores params as canonical JSON so identical runs produce
// byte-identical rows.
func marshalParams(params map[string]string) (string, error) {
	if params == nil {
		params = map[string]string{}
	}
	data, err := audit.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}
