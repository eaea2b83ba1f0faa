package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/api"
	"github.com/cloo-solutions/mpedge/internal/api/handlers"
	"github.com/cloo-solutions/mpedge/internal/api/middleware"
)

type RouterConfig struct {
	// AuthValidator guards /chapters and /ask. Nil leaves them open.
	AuthValidator  middleware.AuthValidator
	Logger         zerolog.Logger
	MaxBodyBytes   int64
	MetricsHandler http.Handler
	HealthHandler  *handlers.HealthHandler
	ChapterHandler *handlers.ChapterHandler
	AskHandler     *handlers.AskHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = middleware.DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", cfg.HealthHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.Route("/chapters", func(r chi.Router) {
			r.Get("/", cfg.ChapterHandler.List)
			r.Get("/{id}", cfg.ChapterHandler.Get)
		})
		r.Post("/ask", cfg.AskHandler.Ask)
	})

	return r
}
