// Package server wires the router, middleware, and dependencies, and runs
// the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rashik/snipvault/internal/auth"
	"github.com/rashik/snipvault/internal/config"
	"github.com/rashik/snipvault/internal/handler"
	"github.com/rashik/snipvault/internal/middleware"
	sqliteRepo "github.com/rashik/snipvault/internal/repository/sqlite"
	"github.com/rashik/snipvault/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed during shutdown so the WAL is flushed and the file lock released.
type Server struct {
	router   *chi.Mux
	settings config.Settings
	logger   *slog.Logger
	db       *sqliteRepo.DB
}

// New assembles the dependency chain: database, service, handler, routes.
// Each layer receives only the interface it needs.
func New(settings config.Settings, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		settings: settings,
		logger:   logger,
		db:       db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	verifier, err := auth.NewVerifier(s.settings.AuthSecret, s.settings.AuthIssuer)
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	snippetService := service.NewSnippetService(s.db, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)

	s.router.Get("/healthz", snippetHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Reads are public; an invalid or missing token downgrades the
		// caller to anonymous instead of blocking the request.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalIdentity(verifier))
			r.Get("/snippets", snippetHandler.HandleList)
			r.Get("/snippets/{id}", snippetHandler.HandleGet)
			r.Get("/stats", snippetHandler.HandleStats)
		})

		// Writes always require a verified identity.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireIdentity(verifier))
			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the listener until SIGINT or SIGTERM, then drains in-flight
// requests for up to 30 seconds before closing the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.settings.Port),
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
			slog.Int("port", s.settings.Port),
			slog.String("database", s.settings.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
