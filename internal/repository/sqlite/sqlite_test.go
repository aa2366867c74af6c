package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// newTestDB opens a fresh database file under t.TempDir().
//
// A file (not ":memory:") is used so the pool can hold several connections
// that all see the same data, the way the server runs.
func newTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"), testLogger(), opts...)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stepClock returns a clock that advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{t: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func columnExists(t *testing.T, db *DB, table, column string) bool {
	t.Helper()
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		t.Fatalf("pragma_table_info: %v", err)
	}
	return count > 0
}

// =========================================================================
// SCHEMA TESTS
// =========================================================================

func TestNew_CreatesSchema(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"users", "sessions", "cheat_items"} {
		var name string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
	for _, index := range []string{"idx_sessions_user_id", "idx_sessions_expires_at", "idx_cheat_items_user_id"} {
		var name string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, index).Scan(&name)
		if err != nil {
			t.Errorf("index %s missing: %v", index, err)
		}
	}
	if !columnExists(t, db, "users", "account_name") {
		t.Error("users.account_name was not added")
	}
}

func TestNew_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := New(context.Background(), path, testLogger())
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	first.Close()

	second, err := New(context.Background(), path, testLogger())
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	second.Close()
}

// A database created before migrations were tracked already has every
// table and the account_name column. Opening it must adopt it unchanged.
func TestNew_AdoptsExistingSchemaWithAccountName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			account_name TEXT,
			created_at INTEGER NOT NULL
		);
		INSERT INTO users (email, password_hash, account_name, created_at) VALUES ('old@x.com', 'h', 'Old Timer', 1);
	`)
	if err != nil {
		t.Fatalf("seeding legacy schema: %v", err)
	}
	raw.Close()

	db, err := New(context.Background(), path, testLogger())
	if err != nil {
		t.Fatalf("New() on legacy db error = %v", err)
	}
	defer db.Close()

	u, err := db.GetUserByEmail(context.Background(), "old@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if u.AccountName == nil || *u.AccountName != "Old Timer" {
		t.Errorf("AccountName = %v, want %q", u.AccountName, "Old Timer")
	}
}

func TestNew_MemoryDatabase(t *testing.T) {
	db, err := New(context.Background(), ":memory:", testLogger())
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if !columnExists(t, db, "users", "account_name") {
		t.Error("schema not migrated on in-memory db")
	}
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 4; i++ {
		c, err := db.conn.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error = %v", err)
		}
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i, c := range conns {
		var on int
		if err := c.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
			t.Fatalf("PRAGMA foreign_keys: %v", err)
		}
		if on != 1 {
			t.Errorf("connection %d: foreign_keys = %d, want 1", i, on)
		}
	}
}

func TestDSN(t *testing.T) {
	if got := dsn("data/a.db"); got != "data/a.db?"+pragmas {
		t.Errorf("dsn() = %q", got)
	}
	if got := dsn("file:a.db?mode=rwc"); got != "file:a.db?mode=rwc&"+pragmas {
		t.Errorf("dsn() with query = %q", got)
	}
}
