package server

import (
	"net/http"

	"github.com/clearsight-ai/docchat/internal/api"
	"github.com/clearsight-ai/docchat/internal/api/handlers"
	"github.com/clearsight-ai/docchat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	SessionHandler  *handlers.SessionHandler
	ChatHandler     *handlers.ChatHandler
	SearchHandler   *handlers.SearchHandler

	// HealthHandler is optional; without it /health reports liveness only.
	HealthHandler *handlers.HealthHandler

	// MaxBodyBytes bounds non-upload request bodies. Uploads are bounded
	// separately by the document handler's file size limit.
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Check)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/domains", cfg.DocumentHandler.Domains)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/reprocess", cfg.DocumentHandler.Reprocess)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxBodyBytes))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", cfg.SessionHandler.Create)
			r.Get("/", cfg.SessionHandler.List)
			r.Get("/{id}", cfg.SessionHandler.Get)
			r.Delete("/{id}", cfg.SessionHandler.Delete)
			r.Get("/{id}/messages", cfg.SessionHandler.Messages)
			r.Get("/{id}/suggestions", cfg.SessionHandler.Suggestions)
		})

		r.Post("/chat", cfg.ChatHandler.Ask)
		r.Post("/search", cfg.SearchHandler.Search)
	})

	return r
}
