// Command migrate manages the database schema out-of-band:
//
//	migrate up      apply pending migrations
//	migrate status  show applied and pending migrations
//	migrate reset   drop the tracking table (refused in production)
//
// By default it runs the migrations embedded in the binary; -dir points it
// at an external directory instead.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/farhan/ranklab/internal/migrate"
	sqliteRepo "github.com/farhan/ranklab/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "ranklab.db", "path to the SQLite database")
	dir := flag.String("dir", "", "migrations directory (default: embedded set)")
	env := flag.String("env", envOr("RANKLAB_ENVIRONMENT", "development"), "environment name")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|status|reset")
		os.Exit(2)
	}

	if err := run(cmd, *dbPath, *dir, *env, logger); err != nil {
		logger.Error("migrate failed", slog.String("command", cmd), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cmd, dbPath, dir, env string, logger *slog.Logger) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var fsys fs.FS = sqliteRepo.Migrations()
	if dir != "" {
		fsys = os.DirFS(dir)
	}

	runner := migrate.NewRunner(db, fsys, env, logger)
	ctx := context.Background()

	switch cmd {
	case "up":
		n, err := runner.Apply(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", n)
		return nil

	case "status":
		st, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, name := range st.Applied {
			fmt.Printf("applied  %s\n", name)
		}
		for _, name := range st.Pending {
			fmt.Printf("pending  %s\n", name)
		}
		return nil

	case "reset":
		if err := runner.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("tracking table dropped")
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
