package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// One connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRunner(t *testing.T, db *sql.DB, fsys fstest.MapFS, env string) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(db, fsys, env, logger)
}

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return fsys
}

func TestApply_RunsPendingInOrder(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"001_create_lists.sql": `CREATE TABLE lists (id TEXT PRIMARY KEY);`,
		"002_create_items.sql": `CREATE TABLE items (id TEXT PRIMARY KEY, list_id TEXT REFERENCES lists(id));`,
	}), "test")

	n, err := r.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Apply() applied %d files, want 2", n)
	}

	// Both tables exist.
	for _, table := range []string{"lists", "items"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s does not exist after Apply: %v", table, err)
		}
	}
}

func TestApply_Idempotent(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"001_create_lists.sql": `CREATE TABLE lists (id TEXT PRIMARY KEY);`,
	}), "test")

	if _, err := r.Apply(context.Background()); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}

	// Second run executes zero additional statements: the CREATE TABLE has
	// no IF NOT EXISTS, so re-execution would fail loudly.
	n, err := r.Apply(context.Background())
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Apply() applied %d files, want 0", n)
	}

	// Exactly one tracking record, not two.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("counting tracking records: %v", err)
	}
	if count != 1 {
		t.Errorf("tracking records = %d, want 1", count)
	}
}

func TestApply_HaltsOnFailure(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"001_ok.sql":    `CREATE TABLE a (id TEXT);`,
		"002_bad.sql":   `CREATE TABLE b (id TEXT); THIS IS NOT SQL;`,
		"003_never.sql": `CREATE TABLE c (id TEXT);`,
	}), "test")

	_, err := r.Apply(context.Background())
	if err == nil {
		t.Fatal("Apply() expected error for invalid statement")
	}

	// 001 is recorded, 002 is not (partial file never recorded), and 003 was
	// never attempted.
	done := appliedNames(t, db)
	if !done["001_ok.sql"] {
		t.Error("001_ok.sql should be recorded as applied")
	}
	if done["002_bad.sql"] {
		t.Error("002_bad.sql must not be recorded after a failed statement")
	}
	if done["003_never.sql"] {
		t.Error("003_never.sql must not be attempted after an earlier failure")
	}

	// The failed file's earlier statement is NOT rolled back.
	var name string
	if err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'b'`,
	).Scan(&name); err != nil {
		t.Errorf("table b should exist (no automatic rollback): %v", err)
	}

	// 003's table must not exist.
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'c'`,
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("table c should not exist, got err = %v", err)
	}
}

func TestPending_SortedAndFiltered(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"002_second.sql": `CREATE TABLE b (id TEXT);`,
		"001_first.sql":  `CREATE TABLE a (id TEXT);`,
		"notes.txt":      `not a migration`,
	}), "test")

	pending, err := r.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	want := []string{"001_first.sql", "002_second.sql"}
	if len(pending) != len(want) || pending[0] != want[0] || pending[1] != want[1] {
		t.Errorf("Pending() = %v, want %v", pending, want)
	}

	if _, err := r.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	pending, err = r.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() after Apply error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending() after Apply = %v, want empty", pending)
	}
}

func TestPending_IsReadOnly(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"001_first.sql": `CREATE TABLE a (id TEXT);`,
	}), "test")

	pending, err := r.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("Pending() = %v, want one file", pending)
	}

	if _, err := r.Status(context.Background()); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	// Neither read created the tracking table.
	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`,
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("reads must not create schema_migrations, got err = %v", err)
	}
}

func TestStatus(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(map[string]string{
		"001_first.sql":  `CREATE TABLE a (id TEXT);`,
		"002_second.sql": `CREATE TABLE b (id TEXT);`,
	}), "test")

	if _, err := r.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	st, err := r.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(st.Applied) != 2 || len(st.Pending) != 0 {
		t.Errorf("Status() = applied %v pending %v, want 2 applied, 0 pending",
			st.Applied, st.Pending)
	}
}

func TestReset(t *testing.T) {
	db := newTestDB(t)
	fsys := migrationFS(map[string]string{
		"001_first.sql": `CREATE TABLE a (id TEXT);`,
	})

	r := newTestRunner(t, db, fsys, "development")
	if _, err := r.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := r.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	// Tracking table is gone; the data table survives.
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`,
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("schema_migrations should be dropped, got err = %v", err)
	}
	if err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'a'`,
	).Scan(&name); err != nil {
		t.Errorf("data table a should survive Reset: %v", err)
	}
}

func TestReset_RefusedInProduction(t *testing.T) {
	db := newTestDB(t)
	r := newTestRunner(t, db, migrationFS(nil), "production")

	if err := r.Reset(context.Background()); err == nil {
		t.Fatal("Reset() must refuse to run in production")
	}
}

func appliedNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scanning name: %v", err)
		}
		done[name] = true
	}
	return done
}
