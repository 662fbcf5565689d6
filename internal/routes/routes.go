package routes

import (
	"net/http"

	"github.com/BradenHooton/kontakt/internal/handlers"
	"github.com/BradenHooton/kontakt/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Contact *handlers.ContactHandler
	CSRF    *handlers.CSRFHandler
	Health  *handlers.HealthHandler
}

// Options configures the middleware wrapped around the API routes
type Options struct {
	Session   middleware.SessionConfig
	RateLimit middleware.RateLimitConfig
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, opts Options) {
	router.Get("/health", h.Health.Health)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(opts.RateLimit))
		r.Use(middleware.Session(opts.Session))

		r.Get("/csrf-token", h.CSRF.Token)
		// Every method reaches the handler so that non-POST requests get the JSON 405 body.
		r.HandleFunc("/contact", h.Contact.Submit)
	})
}
