// Package httpapi wires C7's HTTP surface: routing, middleware, and the
// ambient health/metrics/docs endpoints, in the teacher's chi-based style.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"imgproxy/internal/httpapi/docs"
	"imgproxy/internal/httpapi/handlers"
	appmiddleware "imgproxy/internal/httpapi/middleware"
	"imgproxy/internal/observability"
	"imgproxy/internal/params"
	"imgproxy/internal/processor"
)

// Config carries the router's ambient knobs, sourced from config.Config.
type Config struct {
	APIKey         string
	Bounds         params.Bounds
	ClientCacheTTL time.Duration
	EnableDocs     bool
}

// NewRouter assembles the full route tree.
func NewRouter(proc *processor.Processor, cfg Config, metrics *observability.Collector, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(appmiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Logger(logger))
	r.Use(appmiddleware.Metrics(metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready)
	r.Handle("/metrics", metrics.Handler())

	if cfg.EnableDocs {
		r.Get("/openapi.json", docs.SpecHandler())
		r.Get("/docs", docs.UIHandler())
	}

	images := handlers.New(proc, cfg.Bounds, cfg.ClientCacheTTL, logger)
	r.Get("/images/{id}", images.Get)
	r.With(appmiddleware.APIKey(cfg.APIKey)).Put("/images/{id}", images.Put)

	return r
}
