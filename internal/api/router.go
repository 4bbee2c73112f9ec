package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/platform"
)

// NewRouter creates a new HTTP router with all API endpoints.
func NewRouter(p platform.Platform, cfg *config.Config, status StatusProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(Logger)
	r.Use(JSONContentType)

	h := NewHandler(p, cfg, status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/links", h.GetLinks)
		r.Get("/links/{ifindex}/ipv4", h.GetLinkIPv4)
		r.Get("/links/{ifindex}/ipv6", h.GetLinkIPv6)

		r.Get("/status", h.GetStatus)

		r.Get("/health", h.CheckHealth)
	})

	return r
}
