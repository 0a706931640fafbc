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
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/employees/*      Employee directory + resignation application
  /api/resignations/*   Lifecycle, pending views, batch, settlement
  /api/admin/*          Sweep, sweep runs, seed, reset

SECURITY NOTE:
  Authentication lives at the gateway; identity arrives pre-verified in
  X-Actor-* headers. This service performs no credential checks of its own.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/hr-engine/hr"
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id", "X-Actor-Role", "X-Org-Id"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/resignations", h.EmployeeResignations)
			r.Post("/{id}/resignations", h.Apply)
		})

		// Resignation routes
		r.Route("/resignations", func(r chi.Router) {
			r.Get("/pending", h.PendingResignations)
			r.Post("/batch", h.BatchAct)
			r.Get("/{id}", h.GetResignation)
			r.Post("/{id}/withdraw", h.Withdraw)
			r.Post("/{id}/levels/{level}/approve", h.ActOnStage(hr.DecisionApprove))
			r.Post("/{id}/levels/{level}/reject", h.ActOnStage(hr.DecisionReject))
			r.Get("/{id}/settlement", h.GetSettlement)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
			r.Get("/sweeps", h.ListSweepRuns)
			r.Post("/seed", h.LoadSeedData)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
