package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database to version. Migrations run in order, each
// in its own transaction, and only when user_version is below version.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "index audit records by kind and unit",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_audit_records_kind_unit ON audit_records(kind, unit)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = migrations[len(migrations)-1].version

// ErrRunNotFound is returned when a run ID has no summary row.
var ErrRunNotFound = errors.New("run not found")

// Store is the durable audit log for rule runs.
type Store struct {
	db *sql.DB
}

// Option configures Open.
type Option func(*config)

type config struct {
	busyTimeout time.Duration
	synchronous string
}

// WithBusyTimeout sets how long a writer waits for a lock. Default: 5s.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busyTimeout = d }
}

// WithSynchronous sets the synchronous pragma (OFF, NORMAL, FULL).
// Default: NORMAL, which is durable under WAL except on power loss.
func WithSynchronous(mode string) Option {
	return func(c *config) { c.synchronous = mode }
}

// pragma is one connection setting and the value PRAGMA <name> reports
// once it is applied.
type pragma struct {
	name  string
	value string
	reads string
}

func (c config) pragmas() []pragma {
	sync := map[string]string{"OFF": "0", "NORMAL": "1", "FULL": "2", "EXTRA": "3"}
	ms := fmt.Sprint(c.busyTimeout.Milliseconds())
	return []pragma{
		{name: "journal_mode", value: "WAL", reads: "wal"},
		{name: "synchronous", value: c.synchronous, reads: sync[c.synchronous]},
		{name: "busy_timeout", value: ms, reads: ms},
		{name: "foreign_keys", value: "ON", reads: "1"},
	}
}

// Open creates or opens the audit database at path, applies connection
// pragmas, creates missing tables and runs pending migrations. Opening an
// existing database is safe.
//
// ":memory:" gives a private in-memory log; its journal mode stays
// "memory".
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 5 * time.Second, synchronous: "NORMAL"}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	for _, step := range []struct {
		what string
		fn   func(config) error
	}{
		{"apply pragmas", s.applyPragmas},
		{"apply schema", s.applySchema},
	} {
		if err := step.fn(cfg); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to %s: %w", step.what, err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyPragmas(cfg config) error {
	for _, p := range cfg.pragmas() {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) applySchema(config) error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return s.migrate()
}

// migrate runs every migration newer than the stored user_version.
func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// checkPragmas reports the first pragma whose live value differs from
// what cfg applied.
func (s *Store) checkPragmas(cfg config) error {
	for _, p := range cfg.pragmas() {
		var got string
		if err := s.db.QueryRow("PRAGMA " + p.name).Scan(&got); err != nil {
			return fmt.Errorf("read %s: %w", p.name, err)
		}
		if got != p.reads {
			return fmt.Errorf("%s = %q, expected %q", p.name, got, p.reads)
		}
	}
	return nil
}
