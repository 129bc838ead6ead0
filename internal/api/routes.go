package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/launchlist/internal/auth"
)

// SetupRoutes configures the router. verifier and limiter are optional;
// when nil the corresponding gate is absent and requests pass straight
// through to the handler.
func SetupRoutes(h *Handlers, verifier *auth.Verifier, limiter *RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS: preflight for the browser-embedded subscribe form. Default is
	// permissive; deployments should pin allowed_origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (never gated)
	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Limit)
		}
		// The gate must reject before any store or dispatch side effect,
		// so it wraps the handler directly.
		if verifier != nil {
			r.Use(verifier.RequireAuth)
		}
		r.Post("/subscribe", h.Subscribe)
	})

	return r
}
