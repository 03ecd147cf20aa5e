package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/algox/ruling-class-sub004/internal/audit"
)

// createTestStore opens a fresh store in a temp directory.
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

// createTestRecord returns a finalized record with minimal fields.
func createTestRecord(runID string, seq int64, kind audit.Kind, unit, outcome string) audit.Record {
	return audit.Record{
		RunID:    runID,
		Seq:      seq,
		Kind:     kind,
		Unit:     unit,
		Outcome:  outcome,
		Duration: time.Millisecond,
	}.Finalize()
}
