package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Recorder keeps records in memory. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of the recorded records in emission order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Filter returns records of the given kind.
func (r *Recorder) Filter(kind Kind) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// Reset drops all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// LogSink writes each record as a debug log line.
type LogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogSink logs at debug level. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger, Level: slog.LevelDebug}
}

// Emit implements Sink.
func (s *LogSink) Emit(rec Record) {
	attrs := []slog.Attr{
		slog.String("run_id", rec.RunID),
		slog.Int64("seq", rec.Seq),
		slog.String("kind", string(rec.Kind)),
		slog.String("unit", rec.Unit),
		slog.String("outcome", rec.Outcome),
		slog.Duration("duration", rec.Duration),
	}
	if rec.Error != "" {
		attrs = append(attrs, slog.String("error", rec.Error))
	}
	s.Logger.LogAttrs(context.Background(), s.Level, "unit evaluated", attrs...)
}

// MultiSink fans records out to several sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(rec Record) {
	for _, s := range m {
		if s != nil {
			s.Emit(rec)
		}
	}
}
