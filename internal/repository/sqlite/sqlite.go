// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure-Go translation of the SQLite C code, so the
// binary cross-compiles without a C toolchain. sql.Open with the "sqlite"
// driver name works after the blank import registers the driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/farhan/ranklab/internal/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded migration file set, rooted so that file
// names appear without the directory prefix. The migrate CLI uses the same
// set the server applies at startup.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(fmt.Sprintf("sqlite: embedded migrations missing: %v", err))
	}
	return sub
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath (":memory:" for tests), configures
// pragmas, and applies pending migrations. env is the deployment environment
// name passed through to the migration runner.
func New(dbPath, env string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite permits a single writer; one pooled connection avoids
	// SQLITE_BUSY under write contention and keeps ":memory:" databases
	// coherent (each connection would otherwise get its own private DB).
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight; foreign keys
	// are off by default in SQLite and the items table relies on cascade
	// deletes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	runner := migrate.NewRunner(conn, Migrations(), env, logger)
	if _, err := runner.Apply(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
