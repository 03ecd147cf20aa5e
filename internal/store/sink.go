package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/algox/ruling-class-sub004/internal/audit"
)

// RecordSink writes audit records to a Store as they are emitted.
//
// audit.Sink has no error return, so write failures are logged and the
// first one is kept for Err.
type RecordSink struct {
	store  *Store
	ctx    context.Context
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

var _ audit.Sink = (*RecordSink)(nil)

// Sink returns an audit.Sink bound to ctx.
func (s *Store) Sink(ctx context.Context, logger *slog.Logger) *RecordSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordSink{store: s, ctx: ctx, logger: logger}
}

// Emit implements audit.Sink.
func (rs *RecordSink) Emit(rec audit.Record) {
	if err := rs.store.WriteRecord(rs.ctx, rec); err != nil {
		rs.logger.Error("audit write failed",
			"run_id", rec.RunID,
			"seq", rec.Seq,
			"unit", rec.Unit,
			"error", err,
		)
		rs.mu.Lock()
		if rs.err == nil {
			rs.err = err
		}
		rs.mu.Unlock()
	}
}

// Err returns the first write error, if any.
func (rs *RecordSink) Err() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.err
}
