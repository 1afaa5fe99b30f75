/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/health                 Liveness probe
  /api/members/*              Roster and per-member views
  /api/wallets/*              Wallets and balances
  /api/contribution-types/*   Types and roster-wide views
  /api/contributions/*        Payment submission and verification
  /api/admin/*                Admin operations
  /api/scenarios/*            Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins disables CORS headers.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Get("/{id}/status", h.GetMemberStatus)
			r.Get("/{id}/progress", h.GetMemberProgress)
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", h.ListWallets)
			r.Post("/", h.CreateWallet)
			r.Get("/{id}", h.GetWallet)
		})

		r.Route("/contribution-types", func(r chi.Router) {
			r.Get("/", h.ListContributionTypes)
			r.Post("/", h.CreateContributionType)
			r.Get("/{id}", h.GetContributionType)
			r.Delete("/{id}", h.DeleteContributionType)
			r.Get("/{id}/periods", h.GetTypePeriods)
			r.Get("/{id}/aggregate", h.GetTypeAggregate)
			r.Get("/{id}/arrears", h.GetTypeArrears)
			r.Get("/{id}/matrix", h.GetTypeMatrix)
			r.Get("/{id}/unpaid-members", h.GetUnpaidMembers)
		})

		r.Route("/contributions", func(r chi.Router) {
			r.Post("/", h.RecordContribution)
			r.Post("/bulk", h.BulkRecordContributions)
			r.Post("/{id}/verify", h.VerifyContribution)
			r.Delete("/{id}", h.DeleteContribution)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/deactivate-expired", h.DeactivateExpired)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
