// Package server is the composition root: it builds every dependency from a
// Config, mounts the routes and runs the HTTP server until shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	Config → sqldb.DB ─────────────┬→ AuthService     → AuthHandler
//	       → TokenService ─────────┤
//	       → security.Gate ────────┼→ PropertyService → PropertyHandler
//	       → llm.Generator → agents → analysis.Orchestrator ┘
//	                               └→ FeedbackService → FeedbackHandler
//
// Nothing below this package constructs its own collaborators, and nothing
// is a package-level global.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/real-estate-ai/internal/agent"
	"github.com/sakif/real-estate-ai/internal/agent/llm"
	"github.com/sakif/real-estate-ai/internal/analysis"
	"github.com/sakif/real-estate-ai/internal/auth"
	"github.com/sakif/real-estate-ai/internal/config"
	"github.com/sakif/real-estate-ai/internal/handler"
	"github.com/sakif/real-estate-ai/internal/middleware"
	"github.com/sakif/real-estate-ai/internal/repository/sqldb"
	"github.com/sakif/real-estate-ai/internal/security"
	"github.com/sakif/real-estate-ai/internal/service"
)

// Server owns the router and the database pool. Close releases the pool;
// Start does so on return.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqldb.DB
}

// New opens the database (running migrations) and wires every layer.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqldb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the services and mounts them.
//
// ROUTES:
//
//	GET  /                          status
//	GET  /healthz                   liveness (pings the database)
//	POST /auth/signup               public
//	POST /auth/login                public
//	GET  /auth/github/login         public, only when GitHub is configured
//	GET  /auth/github/callback      public, only when GitHub is configured
//	GET  /auth/me                   bearer
//	POST /property/query            bearer
//	GET  /property/history          bearer
//	GET  /property/response/{id}    bearer
//	POST /feedback, /feedback/      bearer
//	GET  /feedback/response/{id}    bearer
//
// MIDDLEWARE ORDER: RequestID before Logger so log lines carry the ID;
// Recoverer inside Logger so a panic is logged as a 500; CORS last so
// preflights are answered before routing.
func (s *Server) setupRoutes(ctx context.Context) error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.JWTAlgorithm, s.cfg.AccessTokenTTL())
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	gate, err := security.NewGate()
	if err != nil {
		return err
	}

	gen, err := llm.New(ctx, s.cfg.LLM, s.logger)
	if err != nil {
		return err
	}

	orchestrator := analysis.New(analysis.Agents{
		Price:     agent.NewPriceAgent(),
		Location:  agent.NewLocationAgent(),
		Deal:      agent.NewDealAgent(),
		Land:      agent.NewLandAgent(gen, s.logger),
		Explainer: agent.NewExplainer(gen),
	}, s.logger)

	authService := service.NewAuthService(s.db, tokens, passwords, s.cfg.MinPasswordLength, s.logger)
	propertyService := service.NewPropertyService(gate, orchestrator, s.db, s.db, s.logger)
	feedbackService := service.NewFeedbackService(s.db, s.db, s.logger)

	var github *auth.GitHubProvider
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHub.ClientID, s.cfg.GitHub.ClientSecret, s.cfg.GitHub.CallbackURL)
	}

	systemHandler := handler.NewSystemHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	propertyHandler := handler.NewPropertyHandler(propertyService, s.logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.cfg.CORSOrigins()))

	s.router.Get("/", systemHandler.HandleRoot)
	s.router.Get("/healthz", systemHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/property", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/query", propertyHandler.HandleQuery)
		r.Get("/history", propertyHandler.HandleHistory)
		r.Get("/response/{query_id}", propertyHandler.HandleResponse)
	})

	s.router.Route("/feedback", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", feedbackHandler.HandleSubmit)
		r.Get("/response/{id}", feedbackHandler.HandleStats)
	})

	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database pool.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start listens on the configured port and serves until SIGINT/SIGTERM or
// ctx is cancelled, then shuts down gracefully and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("server: listening on port %d: %w", s.cfg.Port, err)
	}

	s.logger.Info("server starting",
		slog.Int("port", s.cfg.Port),
		slog.String("database", s.db.Dialect()),
		slog.Bool("github", s.cfg.GitHubEnabled()),
	)
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is done.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to ShutdownTimeout for in-flight requests
//  3. Return; the caller closes the database
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// one request may wait on two LLM calls
		WriteTimeout: 15*time.Second + 2*s.cfg.LLM.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// Migrate opens the database at databaseURL, which brings the schema up to
// date, and closes it again.
func Migrate(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	db, err := sqldb.Open(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	defer db.Close()

	logger.Info("database schema up to date", slog.String("database", db.Dialect()))
	return nil
}

// NewLogger builds the process logger from cfg. Unknown levels fall back to
// info, unknown formats to text.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
