// The ranklab server persists and serves ranked media lists.
package main

import (
	"log/slog"
	"os"

	"github.com/farhan/ranklab/internal/config"
	"github.com/farhan/ranklab/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// No suggestion provider is wired yet; the endpoint reports itself
	// unavailable until one is configured.
	srv, err := server.New(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
