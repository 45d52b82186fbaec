// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services and stay free of business logic.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canguard/internal/platform/middleware"
	"canguard/pkg/platform/httputil"
)

// Registrar mounts a feature's authenticated endpoints.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts endpoints reachable without a session token.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator

	Public    []PublicRegistrar
	Protected []Registrar

	// Health reports readiness of backing stores; nil means always healthy.
	Health func(r *http.Request) error
}

// NewRouter assembles the full middleware chain and mounts every feature
// handler.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range deps.Public {
		h.RegisterPublic(r)
	}

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		for _, h := range deps.Protected {
			h.Register(protected)
		}
	})

	return r
}
