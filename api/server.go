/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/ops/*            Generic operation dispatch
  /api/regulations/*    Rule documents, history, update, rollback
  /api/calculations/*   Incentive calculators
  /api/risk/*           Risk assessment and sector impact
  /api/search           Knowledge search
  /api/sources          Monitored official sources
  /api/health           Liveness/readiness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; the
  X-Actor header is trusted as-is for audit attribution.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Generic operation front
		r.Route("/ops", func(r chi.Router) {
			r.Get("/", h.ListOperations)
			r.Post("/{name}", h.DispatchOperation)
		})

		// Regulation routes
		r.Route("/regulations", func(r chi.Router) {
			r.Get("/", h.ListRegulations)
			r.Get("/{id}", h.GetRegulation)
			r.Get("/{id}/history", h.GetRegulationHistory)
			r.Put("/{id}", h.UpdateRegulation)
			r.Post("/{id}/rollback", h.RollbackRegulation)
		})

		// Calculation routes
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/learnership", h.ComputeLearnership)
			r.Post("/employment", h.ComputeEmployment)
		})

		// Risk routes
		r.Route("/risk", func(r chi.Router) {
			r.Post("/assessment", h.AssessRisk)
			r.Get("/impact", h.BusinessImpact)
		})

		// Knowledge routes
		r.Get("/search", h.Search)
		r.Get("/sources", h.ListSources)

		r.Get("/health", h.Health)
	})

	return r
}
