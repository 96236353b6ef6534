// Package api exposes the recipe archive over HTTP: a read-only surface
// for browsing archived recipes and fetching their document text.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lspestrip/striprecipes/internal/archive"
)

// RecipeStore defines the archive operations the API needs.
type RecipeStore interface {
	List(ctx context.Context) ([]archive.Entry, error)
	Get(ctx context.Context, id string) (*archive.Entry, error)
	Content(ctx context.Context, id string) (string, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server is the HTTP server over the recipe archive.
type Server struct {
	config    Config
	store     RecipeStore
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance.
func New(config Config, store RecipeStore, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
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

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/recipes", s.handleListRecipes)
		r.Get("/recipes/{recipeID}", s.handleGetRecipe)
		r.Get("/recipes/{recipeID}/content", s.handleGetRecipeContent)
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
