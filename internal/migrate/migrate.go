// Package migrate applies versioned SQL migration files to the relational
// store exactly once each, in deterministic order.
//
// Migration files are named NNN_description.sql with a zero-padded numeric
// prefix; they are applied in lexicographic filename order, so the prefix
// guarantees correct ordering. Applied files are recorded in the
// schema_migrations table and skipped on re-invocation, making the runner
// safe to run at every startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

const trackingTable = "schema_migrations"

// maxLoggedStatement bounds the statement text included in failure logs.
const maxLoggedStatement = 120

// Runner applies pending migrations from a filesystem against a database.
//
// Migrations within one file execute strictly sequentially, one statement
// per round trip; files apply strictly in sorted order. Runs are assumed to
// be single-operator — there is no cross-process lock guarding concurrent
// invocations.
type Runner struct {
	db     *sql.DB
	fsys   fs.FS
	env    string
	logger *slog.Logger
}

// Status reports applied and pending migration file names.
type Status struct {
	Applied []string `json:"applied"`
	Pending []string `json:"pending"`
}

// NewRunner creates a Runner reading *.sql files from the root of fsys.
// env is the deployment environment name; Reset refuses to run when it
// is "production".
func NewRunner(db *sql.DB, fsys fs.FS, env string, logger *slog.Logger) *Runner {
	return &Runner{db: db, fsys: fsys, env: env, logger: logger}
}

// EnsureTable creates the migration tracking table if absent. Idempotent.
func (r *Runner) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+trackingTable+` (
			name        TEXT PRIMARY KEY,
			executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("migrate: creating tracking table: %w", err)
	}
	return nil
}

// files returns every .sql file name at the root of the filesystem,
// sorted lexicographically.
func (r *Runner) files() ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: reading migration directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// tableExists reports whether the tracking table has been created.
func (r *Runner) tableExists(ctx context.Context) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		trackingTable,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("migrate: checking tracking table: %w", err)
	}
	return n > 0, nil
}

// applied returns the set of file names already recorded as executed. A
// missing tracking table means nothing has been applied; reads never
// create it.
func (r *Runner) applied(ctx context.Context) (map[string]bool, error) {
	exists, err := r.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]bool{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM `+trackingTable+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("migrate: querying applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("migrate: scanning migration row: %w", err)
		}
		done[name] = true
	}
	return done, rows.Err()
}

// Pending returns migration file names not yet applied, in apply order.
// It has no side effects; only Apply creates the tracking table.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	names, err := r.files()
	if err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(names))
	for _, name := range names {
		if !done[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Apply runs every pending migration in order and returns how many files it
// applied.
//
// Each file is split into statements and executed one statement per round
// trip; the file is recorded only after all of its statements succeed. On
// the first failing statement the run aborts: no record is written for the
// failed file, no further files are attempted, and statements already
// executed for that file are NOT rolled back — partial schema application is
// surfaced to the operator rather than papered over.
func (r *Runner) Apply(ctx context.Context) (int, error) {
	if err := r.EnsureTable(ctx); err != nil {
		return 0, err
	}
	pending, err := r.Pending(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range pending {
		src, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return applied, fmt.Errorf("migrate: reading %s: %w", name, err)
		}

		for _, stmt := range SplitStatements(string(src)) {
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				r.logger.Error("migration statement failed",
					slog.String("file", name),
					slog.String("statement", truncate(stmt, maxLoggedStatement)),
					slog.String("error", err.Error()),
				)
				return applied, fmt.Errorf("migrate: applying %s: %w", name, err)
			}
		}

		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO `+trackingTable+` (name) VALUES (?)`, name); err != nil {
			return applied, fmt.Errorf("migrate: recording %s: %w", name, err)
		}

		r.logger.Info("migration applied", slog.String("file", name))
		applied++
	}

	return applied, nil
}

// Status reports applied and pending file names for operator visibility.
// Read-only, like Pending.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	names, err := r.files()
	if err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Applied: []string{}, Pending: []string{}}
	for _, name := range names {
		if done[name] {
			st.Applied = append(st.Applied, name)
		} else {
			st.Pending = append(st.Pending, name)
		}
	}
	return st, nil
}

// Reset drops the tracking table only — never the data tables. It exists for
// local development recovery and refuses to run in production.
func (r *Runner) Reset(ctx context.Context) error {
	if r.env == "production" {
		return fmt.Errorf("migrate: reset refused in production environment")
	}
	if _, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+trackingTable); err != nil {
		return fmt.Errorf("migrate: dropping tracking table: %w", err)
	}
	r.logger.Warn("migration tracking table dropped", slog.String("env", r.env))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
