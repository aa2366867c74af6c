// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads *config.Config and the logger, then
//
//	Server.New() creates: sqlite.DB → AuthService / ItemService → handlers
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
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
	"github.com/go-chi/cors"

	"github.com/sakif/reversecheats/internal/auth"
	"github.com/sakif/reversecheats/internal/config"
	"github.com/sakif/reversecheats/internal/handler"
	"github.com/sakif/reversecheats/internal/middleware"
	sqliteRepo "github.com/sakif/reversecheats/internal/repository/sqlite"
	"github.com/sakif/reversecheats/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database handle. Start closes it after the HTTP
// server has drained; callers that never Start (tests) call Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for session expiry and item timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New opens the store, runs migrations and wires every route.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` so it is never confused
// with the modernc.org/sqlite driver.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(ctx, cfg.DBPath, logger, sqliteRepo.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                 → store ping
// POST   /api/signup              → create account            [auth limiter]
// POST   /api/login               → open session, set sid     [auth limiter]
// POST   /api/logout              → drop session, clear sid
// GET    /api/me                  → current user              [session]
// GET    /api/cheat-items         → list own items            [session]
// GET    /api/cheat-items/{id}    → one item                  [session]
// POST   /api/cheat-items         → create item               [session]
// PUT    /api/cheat-items/{id}    → update item               [session]
// DELETE /api/cheat-items/{id}    → delete item               [session]
// PUT    /api/account-name        → set display name          [session]
// GET    /*                       → built SPA, when DIST_DIR has one
//
// MIDDLEWARE ORDER MATTERS:
// 1. CORS: answers preflights before anything else runs
// 2. RequestID: assigns the id every later log line carries
// 3. RealIP: client IP from X-Forwarded-For, used by the rate limiters
// 4. Logger: one line per request
// 5. Recoverer: a panic becomes a 500 (and is still logged by Logger)
// 6. SecurityHeaders
func (s *Server) setupRoutes() {
	cfg := s.config

	// === Global Middleware ===
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders(cfg.Production))

	// === Dependencies ===
	// s.db implements every repository interface; services receive it
	// through those interfaces, handlers receive the services.
	passwords := auth.NewPasswordService(cfg.BcryptCost)
	cookies := auth.NewCookieManager(cfg.SessionTTL, cfg.Production)

	authService := service.NewAuthService(s.db, s.db, passwords, cfg.SessionTTL, s.logger, service.WithClock(s.now))
	itemService := service.NewItemService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, cookies, s.logger)
	itemHandler := handler.NewItemHandler(itemService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.RateLimitWindow)
	// Shared by signup and login: failures on either count against the IP.
	authLimiter := middleware.NewAttemptLimiter(cfg.AuthRateLimit, cfg.RateLimitWindow)
	authLimit := authLimiter.LimitFailures(middleware.TooManyAttemptsMessage)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(apiLimiter.Limit(middleware.TooManyRequestsMessage))

		r.With(authLimit).Post("/signup", authHandler.HandleSignup)
		r.With(authLimit).Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		// Everything below needs a live session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(authService, cookies, s.logger))

			r.Get("/me", authHandler.HandleMe)
			r.Put("/account-name", authHandler.HandleUpdateAccountName)

			r.Get("/cheat-items", itemHandler.HandleList)
			r.Get("/cheat-items/{id}", itemHandler.HandleGet)
			r.Post("/cheat-items", itemHandler.HandleCreate)
			r.Put("/cheat-items/{id}", itemHandler.HandleUpdate)
			r.Delete("/cheat-items/{id}", itemHandler.HandleDelete)
		})

		r.NotFound(handler.NotFound)
		r.MethodNotAllowed(handler.MethodNotAllowed)
	})

	// === Static SPA ===
	if spa, ok := newSPAHandler(cfg.DistDir); ok {
		s.router.Get("/*", spa.ServeHTTP)
		s.logger.Info("serving frontend", slog.String("dir", cfg.DistDir))
	} else {
		s.logger.Warn("frontend build not found, serving API only",
			slog.String("dir", cfg.DistDir),
		)
	}
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (checkpoints the WAL, releases the file)
func (s *Server) Start() error {
	// Runs after everything else in this function finishes.
	defer s.db.Close()

	// Create the HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("production", s.config.Production),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
