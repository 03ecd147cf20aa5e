// Package store persists rule-run audit records in SQLite.
//
// Two tables:
//   - runs: one summary row per run (root runnable, final outcome); a
//     second WriteRun for the same ID replaces it
//   - audit_records: one row per evaluated unit, keyed by the record's
//     content-addressed ID
//
// Record writes use ON CONFLICT DO NOTHING so re-emitting a record is
// harmless. Reads order by seq ASC, id ASC COLLATE BINARY, so a run reads
// back in the order it executed regardless of wall-clock time.
//
// # Database Configuration
//
// Open applies journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000
// and foreign_keys=ON. WithSynchronous and WithBusyTimeout change the
// middle two. Schema changes after the base tables are numbered
// migrations tracked in PRAGMA user_version.
package store
