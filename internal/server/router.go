package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/api/handlers"
	"github.com/peptiq-labs/peptiq/internal/api/middleware"
)

type RouterConfig struct {
	AskHandler           *handlers.AskHandler
	PeptideHandler       *handlers.PeptideHandler
	RestrictionHandler   *handlers.RestrictionHandler
	AllowedDomainHandler *handlers.AllowedDomainHandler
	DashboardHandler     *handlers.DashboardHandler
	CacheHandler         *handlers.CacheHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ask", cfg.AskHandler.Ask)

	r.Route("/peptides", func(r chi.Router) {
		r.Post("/", cfg.PeptideHandler.Create)
		r.Get("/", cfg.PeptideHandler.List)
		r.Get("/{name}", cfg.PeptideHandler.Get)
		r.Delete("/{name}", cfg.PeptideHandler.Delete)
		r.Get("/{name}/similar", cfg.PeptideHandler.Similar)
		r.Post("/{name}/ask", cfg.AskHandler.AskAbout)
		r.Get("/{name}/recommendations", cfg.AskHandler.Recommend)
	})

	r.Route("/restrictions", func(r chi.Router) {
		r.Post("/", cfg.RestrictionHandler.Create)
		r.Get("/", cfg.RestrictionHandler.List)
		r.Delete("/{id}", cfg.RestrictionHandler.Delete)
	})

	r.Route("/allowed-domains", func(r chi.Router) {
		r.Post("/", cfg.AllowedDomainHandler.Create)
		r.Get("/", cfg.AllowedDomainHandler.List)
		r.Delete("/{id}", cfg.AllowedDomainHandler.Delete)
	})

	r.Get("/dashboard", cfg.DashboardHandler.Get)

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", cfg.CacheHandler.Stats)
		r.Post("/clear", cfg.CacheHandler.Clear)
	})

	return r
}
