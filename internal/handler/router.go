package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bidon15/indicator-deployer/internal/middleware"
	"github.com/Bidon15/indicator-deployer/internal/pkg/response"
)

// RouterConfig wires the status API.
type RouterConfig struct {
	Deployments    DeploymentReader
	DB             Pinger
	Registry       *prometheus.Registry
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the status API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.NewHTTPMetrics(cfg.Registry).Handler)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	health := NewHealthHandler(cfg.DB, cfg.Logger)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{
				"name":    "Indicator Deployer Status API",
				"version": "1.0.0",
			})
		})
		r.Mount("/deployments", NewDeploymentHandler(cfg.Deployments, cfg.Logger).Routes())
	})

	return r
}
