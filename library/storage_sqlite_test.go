package library

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func tempStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStorage(filepath.Join(dir, "nested", "test.db"))
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	s.SetWatchInterval(10 * time.Millisecond)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := tempStorage(t)

	if _, ok, err := s.Get(ctx, KeyTheme); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, KeyTheme)
	if err != nil || !ok || v != "light" {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}

	if err := s.Delete(ctx, KeyTheme); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyTheme); ok {
		t.Fatalf("key still present after delete")
	}
	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, KeyTheme); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestRevisionSurvivesDelete(t *testing.T) {
	ctx := context.Background()
	s := tempStorage(t)

	revs := []int64{}
	record := func() {
		rev, err := s.revision(ctx, KeyUser)
		if err != nil {
			t.Fatalf("revision: %v", err)
		}
		revs = append(revs, rev)
	}

	record()
	_ = s.Set(ctx, KeyUser, "a")
	record()
	_ = s.Delete(ctx, KeyUser)
	record()
	_ = s.Set(ctx, KeyUser, "a")
	record()

	for i := 1; i < len(revs); i++ {
		if revs[i] <= revs[i-1] {
			t.Fatalf("revisions not increasing: %v", revs)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, _, _ := s.Get(ctx, KeyTheme); v != "dark" {
		t.Fatalf("want dark after reopen, got %q", v)
	}
}

// TestMigratesVersionOneSchema opens a database written before revisions
// existed.
func TestMigratesVersionOneSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT);`,
		`INSERT INTO meta(key,value) VALUES('schema_version','1');`,
		migrations[0][0],
		`INSERT INTO kv(key,value) VALUES('theme','dark');`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	db.Close()

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	defer s.Close()

	if v, ok, _ := s.Get(ctx, KeyTheme); !ok || v != "dark" {
		t.Fatalf("lost value in migration: %q", v)
	}
	if err := s.Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatalf("set after migration: %v", err)
	}
	var version int
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != schemaVersion {
		t.Fatalf("want schema version %d, got %d", schemaVersion, version)
	}
}

func TestWatchSeesOtherConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "shared.db")
	watcher, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open watcher: %v", err)
	}
	defer watcher.Close()
	watcher.SetWatchInterval(10 * time.Millisecond)

	writer, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	changes, err := watcher.Watch(ctx, KeyUser)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := writer.Set(ctx, KeyUser, "token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("no change signal after set")
	}

	if err := writer.Delete(ctx, KeyUser); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("no change signal after delete")
	}

	cancel()
	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch channel not closed after cancel")
	}
}

func TestWatchAfterClose(t *testing.T) {
	s := tempStorage(t)
	s.Close()
	if _, err := s.Watch(context.Background(), KeyUser); err != ErrStorageClosed {
		t.Fatalf("want ErrStorageClosed, got %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := tempStorage(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Set(ctx, KeyPendingRatings, "x")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent set: %v", err)
		}
	}

	rev, err := s.revision(ctx, KeyPendingRatings)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if rev != 20 {
		t.Fatalf("want revision 20, got %d", rev)
	}
}
