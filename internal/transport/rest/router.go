package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/event-ticketing/internal/auth"
	"github.com/frahmantamala/event-ticketing/internal/event"
	"github.com/frahmantamala/event-ticketing/internal/points"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
	"github.com/frahmantamala/event-ticketing/internal/transport/middleware"
	"github.com/frahmantamala/event-ticketing/internal/transport/swagger"
	"github.com/frahmantamala/event-ticketing/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, authService *auth.Service, userHandler *user.Handler, eventHandler *event.Handler, transactionHandler *transaction.Handler, pointsHandler *points.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Get RBAC authorization from auth service
	rbac := authService.RBACAuthorization()

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		// Public event catalog (no auth required)
		if eventHandler != nil {
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/events/{id}", eventHandler.GetEvent)
		}

		if authHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				// Current user
				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
				}

				// Points ledger routes
				if pointsHandler != nil {
					pr.Get("/points", pointsHandler.GetBalance)
					pr.Get("/points/history", pointsHandler.GetHistory)
				}

				// Transaction routes
				if transactionHandler != nil {
					pr.Route("/transactions", func(tr chi.Router) {
						// Customer routes
						tr.Post("/", transactionHandler.CreateTransaction)             // POST /transactions
						tr.Get("/", transactionHandler.GetUserTransactions)            // GET /transactions
						tr.Get("/{id}", transactionHandler.GetTransaction)             // GET /transactions/:id
						tr.Patch("/{id}/proof", transactionHandler.SubmitPaymentProof) // PATCH /transactions/:id/proof
						tr.Patch("/{id}/cancel", transactionHandler.CancelTransaction) // PATCH /transactions/:id/cancel

						// Organizer routes with permission protection
						tr.Group(func(or chi.Router) {
							or.Use(rbac.RequireApproveTransaction())
							or.Patch("/{id}/approve", transactionHandler.ApproveTransaction) // PATCH /transactions/:id/approve
						})

						tr.Group(func(or chi.Router) {
							or.Use(rbac.RequireRejectTransaction())
							or.Patch("/{id}/reject", transactionHandler.RejectTransaction) // PATCH /transactions/:id/reject
						})
					})
				}
			})
		}
	})
}
