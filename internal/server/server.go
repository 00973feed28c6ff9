// Package server exposes the assistant over HTTP. The /query and /ask
// endpoints answer with the unified response envelope; validator rejections
// are business-level refusals and come back as 200, malformed bodies as 422,
// and panics recovered by the router as 500. The informational endpoints
// (/, /health, /tables, /metrics) return their own payloads.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vishal-code-E/banking-data-assistance/internal/metrics"
	"github.com/Vishal-code-E/banking-data-assistance/internal/orchestrator"
	"github.com/Vishal-code-E/banking-data-assistance/internal/schema"
)

// Pipeline is the orchestration surface the handlers call into.
type Pipeline interface {
	Ask(ctx context.Context, userQuery string) orchestrator.Envelope
	Query(ctx context.Context, rawSQL string) orchestrator.Envelope
}

// Config wires the server's collaborators.
type Config struct {
	Logger         *slog.Logger
	Pipeline       Pipeline
	Catalog        *schema.Catalog
	Pool           *sql.DB // used for health checks; may be nil in tests
	AIReady        bool
	AllowedOrigins []string
	MaxSQLLength   int // raw SQL bound (default 5000)
	MaxQueryLength int // natural-language bound (default 2000)
}

// Server carries the handler dependencies.
type Server struct {
	log *slog.Logger
	cfg Config
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.MaxSQLLength == 0 {
		cfg.MaxSQLLength = 5000
	}
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 2000
	}
	return &Server{log: cfg.Logger, cfg: cfg}
}

// Router builds the chi router with recovery, metrics and CORS middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/tables", s.handleTables)
	r.Post("/query", s.handleQuery)
	r.Post("/ask", s.handleAsk)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
