// Package server wires handlers, middleware, and routes into an HTTP
// server. It is the composition root: every dependency is assembled here,
// in one place, instead of being scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/farhan/ranklab/internal/auth"
	"github.com/farhan/ranklab/internal/catalog"
	"github.com/farhan/ranklab/internal/config"
	"github.com/farhan/ranklab/internal/handler"
	"github.com/farhan/ranklab/internal/middleware"
	"github.com/farhan/ranklab/internal/ratelimit"
	sqliteRepo "github.com/farhan/ranklab/internal/repository/sqlite"
	"github.com/farhan/ranklab/internal/service"
)

// Server owns the router and the resources behind it. The database and the
// rate-limit sweeper are closed during graceful shutdown.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *ratelimit.MemoryStore
}

// New assembles the full dependency chain: database, services, handlers,
// routes. The suggester is optional; passing nil leaves the suggestion
// endpoint responding 503.
func New(cfg *config.Config, suggester catalog.Suggester, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, cfg.Environment, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		db:      db,
		limiter: ratelimit.NewMemoryStore(),
	}
	// The sweep horizon must cover the longest window in use, or active
	// buckets would be dropped mid-window.
	s.limiter.StartSweep(cfg.RateLimitSweep, max(cfg.SuggestionWindow, cfg.ShareWindow))
	s.setupRoutes(tokens, suggester)
	return s, nil
}

func (s *Server) setupRoutes(tokens *auth.TokenService, suggester catalog.Suggester) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	listService := service.NewListService(s.db, s.logger)
	shareService := service.NewShareService(s.db, s.logger)

	listHandler := handler.NewListHandler(listService, s.logger)
	shareHandler := handler.NewShareHandler(shareService, s.logger)
	suggestHandler := handler.NewSuggestHandler(listService, suggester, s.logger)

	limiter := ratelimit.NewLimiter(s.limiter)
	suggestLimit := middleware.RateLimit(limiter, "suggestions", s.cfg.SuggestionLimit, s.cfg.SuggestionWindow)
	shareLimit := middleware.RateLimit(limiter, "share", s.cfg.ShareLimit, s.cfg.ShareWindow)

	s.router.Route("/api/lists", func(r chi.Router) {
		// Public share-code lookup. OptionalAuth never blocks, but a signed-in
		// caller gets identified so rate limiting can key on the user instead
		// of the remote address.
		r.With(auth.OptionalAuth(tokens), shareLimit).Get("/share/{code}", shareHandler.HandleResolve)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/", listHandler.HandleGetAll)
			r.Post("/", listHandler.HandleCreate)
			r.Put("/{id}", listHandler.HandleUpdate)
			r.Delete("/{id}", listHandler.HandleDelete)

			r.With(suggestLimit).Post("/{id}/suggestions", suggestHandler.HandleSuggest)
		})
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.limiter.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.String("environment", s.cfg.Environment),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
