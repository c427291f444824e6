package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultWatchInterval is how often SQLiteStorage polls for changes made by
// other processes.
const DefaultWatchInterval = 500 * time.Millisecond

// SQLiteStorage keeps local state in a SQLite file. Every write bumps the
// key's revision so watchers in other processes notice it.
type SQLiteStorage struct {
	db *sql.DB

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	revStmt    *sql.Stmt

	watchInterval time.Duration

	mu     sync.Mutex
	closed bool
}

// NewSQLiteStorage opens (or creates) the database at dbPath, applies schema
// migrations, and prepares common statements.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStorage{db: db, watchInterval: DefaultWatchInterval}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// SetWatchInterval changes the polling period used by Watch.
func (s *SQLiteStorage) SetWatchInterval(d time.Duration) {
	if d > 0 {
		s.watchInterval = d
	}
}

// Close releases prepared statements and closes the DB.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt, s.revStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 2

// migrations[i] upgrades the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
	},
	{
		`ALTER TABLE kv ADD COLUMN revision INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE kv ADD COLUMN updated_at DATETIME;`,
		`CREATE TABLE IF NOT EXISTS tombstones (
            key TEXT PRIMARY KEY,
            revision INTEGER NOT NULL
        );`,
	},
}

func applyMigrations(db *sql.DB) error {
	// WAL lets a watcher read while another process writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for version := current; version < schemaVersion; version++ {
		for _, stmt := range migrations[version] {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("apply migration %d: %w", version+1, err)
			}
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SQLiteStorage) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(`SELECT value FROM kv WHERE key=?`); err != nil {
		return err
	}
	// The revision continues from a tombstone so delete-then-set is still a change.
	if s.setStmt, err = s.db.Prepare(`INSERT INTO kv(key,value,revision,updated_at)
            VALUES(?,?,COALESCE((SELECT revision FROM tombstones WHERE key=?),0)+1,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value, revision=kv.revision+1, updated_at=excluded.updated_at`); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.Prepare(`DELETE FROM kv WHERE key=?`); err != nil {
		return err
	}
	if s.revStmt, err = s.db.Prepare(`SELECT COALESCE(
            (SELECT revision FROM kv WHERE key=?),
            (SELECT revision FROM tombstones WHERE key=?),
            0)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key/value access
// ---------------------------------------------------------------------------

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.setStmt.ExecContext(ctx, key, value, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key and leaves a tombstone carrying the next revision.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rev int64
	err = tx.QueryRowContext(ctx, `SELECT revision FROM kv WHERE key=?`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	if _, err := tx.StmtContext(ctx, s.deleteStmt).ExecContext(ctx, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tombstones(key,revision) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET revision=excluded.revision`, key, rev+1); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStorage) revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	if err := s.revStmt.QueryRowContext(ctx, key, key).Scan(&rev); err != nil {
		return 0, err
	}
	return rev, nil
}

// Watch polls the key's revision until ctx is done.
func (s *SQLiteStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStorageClosed
	}

	last, err := s.revision(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", key, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			rev, err := s.revision(ctx, key)
			if err != nil {
				// Closed database or cancelled context: stop watching.
				return
			}
			if rev != last {
				last = rev
				notify(out)
			}
		}
	}()
	return out, nil
}
