/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

ROUTER: chi

	Chi was chosen for:
	- Lightweight and fast
	- Context-based
	- Middleware support
	- RESTful route patterns

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for internal dashboards

ROUTE GROUPS:

	/api/employees/*   Directory and profile access
	/api/runs/*        Batch calculation runs
	/api/snapshots     Period snapshot listing
	/api/reports/*     Variance and component-mix reporting
	/api/admin/*       Rate plan seeding

SECURITY NOTE:

	No authentication middleware currently. All endpoints are public.
	Front with a gateway before exposing outside the payroll network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/profile", h.GetProfile)
			r.Put("/{id}/profile", h.UpdateProfile)
			r.Get("/{id}/snapshots/{period}", h.GetSnapshot)
		})

		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.TriggerRun)
			r.Get("/", h.ListRuns)
			r.Get("/{id}", h.GetRun)
			r.Get("/{id}/snapshots", h.GetRunSnapshots)
			r.Get("/{id}/advisories", h.GetRunAdvisories)
		})

		// Snapshot listing
		r.Get("/snapshots", h.ListSnapshots)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/variance", h.VarianceReport)
			r.Get("/component-mix", h.ComponentMix)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rates", h.SeedRates)
		})
	})

	return r
}
