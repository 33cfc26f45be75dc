package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/trellishq/trellis-gw/internal/auth"
	"github.com/trellishq/trellis-gw/internal/items"
)

// WorkItemStore defines the interface for work item reads
type WorkItemStore interface {
	Get(ctx context.Context, id string) (*items.WorkItem, error)
	ListByProject(ctx context.Context, projectKey string, limit int) ([]*items.WorkItem, error)
}

// SecretRotator defines the interface for secret rotation operations
type SecretRotator interface {
	Rotate(ctx context.Context, projectKey, source, secret string) error
	Invalidate(ctx context.Context, projectKey, source string) error
}

// TokenAuthenticator validates bearer tokens
type TokenAuthenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// Config holds API server configuration
type Config struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	gate      http.Handler
	authn     TokenAuthenticator
	items     WorkItemStore
	rotator   SecretRotator
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance
func New(config Config, gate http.Handler, authn TokenAuthenticator, store WorkItemStore, rotator SecretRotator, logger *slog.Logger) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	return &Server{
		config:    config,
		gate:      gate,
		authn:     authn,
		items:     store,
		rotator:   rotator,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Webhook ingestion. The legacy path and the versioned path share one
	// handler so behavior can never drift between them.
	r.Post("/webhooks/github", s.gate.ServeHTTP)
	r.Post("/api/v1/webhooks/github", s.gate.ServeHTTP)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/auth/whoami", s.handleWhoami)
		r.With(s.requireScopes("items:ro", "items:rw")).Get("/api/v1/workitems/{itemID}", s.handleGetWorkItem)
		r.With(s.requireScopes("items:ro", "items:rw")).Get("/api/v1/workitems", s.handleListWorkItems)
		r.With(s.requireScopes("secrets:rw")).Post("/api/v1/secrets/{project}/{source}/rotate", s.handleRotateSecret)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
