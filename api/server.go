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
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/requests/*    Leave request lifecycle
  /api/employees/*   Per-employee views (history, credits)
  /api/conflicts     Overlap checks
  /api/suggestions   Alternate window suggestions
  /healthz           Liveness probe
  /metrics           Prometheus scrape endpoint

SECURITY NOTE:
  Authentication happens upstream; the gateway forwards the caller as
  X-Actor-ID / X-Actor-Role headers. Handlers enforce role rules.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Request lifecycle
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/tl-approve", h.ApproveTL)
			r.Post("/{id}/tl-deny", h.DenyTL)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/deny", h.Deny)
			r.Post("/{id}/partial-deny", h.PartialDeny)
			r.Post("/{id}/force-approve", h.ForceApprove)
			r.Post("/{id}/short-notice-override", h.OverrideShortNotice)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/adjust", h.Adjust)
		})

		// Employee views
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/requests", h.ListEmployeeRequests)
			r.Get("/{id}/credits", h.GetCredits)
			r.Get("/{id}/credits/preview", h.PreviewCredits)
		})

		// Planning
		r.Get("/conflicts", h.CheckConflicts)
		r.Get("/suggestions", h.SuggestDates)
	})

	// Operational endpoints
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
