package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	// Reopening an existing log must not fail or lose tables.
	for range 3 {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
	require.FileExists(t, path)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var tables []string
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	assert.Equal(t, []string{"audit_records", "runs"}, tables)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "audit.db"))
	require.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	v, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestPragmas(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want map[string]string
	}{
		{
			name: "defaults",
			want: map[string]string{"journal_mode": "wal", "synchronous": "1", "busy_timeout": "5000", "foreign_keys": "1"},
		},
		{
			name: "options",
			opts: []Option{WithBusyTimeout(250 * time.Millisecond), WithSynchronous("FULL")},
			want: map[string]string{"synchronous": "2", "busy_timeout": "250"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(filepath.Join(t.TempDir(), "audit.db"), tt.opts...)
			require.NoError(t, err)
			defer s.Close()

			for name, want := range tt.want {
				var got string
				require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&got))
				assert.Equal(t, want, got, name)
			}

			cfg := config{busyTimeout: 5 * time.Second, synchronous: "NORMAL"}
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			assert.NoError(t, s.checkPragmas(cfg))
		})
	}
}

func TestCheckPragmas_Mismatch(t *testing.T) {
	s := createTestStore(t)
	err := s.checkPragmas(config{busyTimeout: time.Second, synchronous: "NORMAL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy_timeout")
}

func TestSchema_AuditRecords(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t,
		[]string{"id", "run_id", "seq", "kind", "unit", "outcome", "params", "error", "code", "duration_ns"},
		tableColumns(t, s.db, "audit_records"))
	assert.Equal(t,
		[]string{"run_id", "runnable", "outcome", "error", "code"},
		tableColumns(t, s.db, "runs"))

	indexes := tableIndexes(t, s.db, "audit_records")
	assert.Contains(t, indexes, "idx_audit_records_run_seq")
	assert.Contains(t, indexes, "idx_audit_records_kind_unit")
}

func TestMigrate_FromUnversioned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	// Tables without any migration applied.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NotContains(t, tableIndexes(t, db, "audit_records"), "idx_audit_records_kind_unit")
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
	assert.Contains(t, tableIndexes(t, s.db, "audit_records"), "idx_audit_records_kind_unit")
}

func TestMigrations_Ordered(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, m.name)
		assert.NotEmpty(t, m.stmt, m.name)
	}
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	return columns
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	require.NoError(t, rows.Err())
	return indexes
}
