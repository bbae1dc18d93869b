// Package httpserver provides the HTTP REST API of the paper feed.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/database"
	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/ranking"
)

// Ranker produces a ranked page of one source's feed.
type Ranker interface {
	Rank(ctx context.Context, req ranking.RankRequest) ([]domain.RankedResult, error)
}

// PaperMutator applies reader votes and tags.
type PaperMutator interface {
	Vote(ctx context.Context, id int64, direction domain.VoteDirection) (bool, error)
	AddUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error)
	RemoveUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error)
}

// TagVocabulary serves the cached tag list.
type TagVocabulary interface {
	Get(ctx context.Context) ([]string, error)
	Invalidate()
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// CORSAllowedOrigins enables CORS for the listed origins when non-empty.
	CORSAllowedOrigins []string

	// MutationRateLimit caps vote and tag requests per client IP per
	// MutationRateWindow. Zero disables the limit.
	MutationRateLimit  int
	MutationRateWindow time.Duration

	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// Deps bundles the server's collaborators.
type Deps struct {
	Ranker  Ranker
	Papers  PaperMutator
	Tags    TagVocabulary
	Health  HealthChecker
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        Config
	ranker     Ranker
	papers     PaperMutator
	tags       TagVocabulary
	health     HealthChecker
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		ranker:   deps.Ranker,
		papers:   deps.Papers,
		tags:     deps.Tags,
		health:   deps.Health,
		validate: newValidator(),
		metrics:  deps.Metrics,
		logger:   deps.Logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.accessLogMiddleware)
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
			ExposedHeaders: []string{"X-Correlation-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.cfg.MetricsPath != "" {
		r.Handle(s.cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/papers/{source}", s.listPapers)
		r.Get("/tags", s.listTags)

		r.Group(func(r chi.Router) {
			if s.cfg.MutationRateLimit > 0 {
				window := s.cfg.MutationRateWindow
				if window <= 0 {
					window = time.Minute
				}
				r.Use(httprate.LimitByIP(s.cfg.MutationRateLimit, window))
			}
			r.Post("/papers/{id}/vote", s.votePaper)
			r.Post("/papers/{id}/tags", s.addTag)
			r.Delete("/papers/{id}/tags/{tag}", s.removeTag)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness, which requires a healthy database.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
