package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/smm-storefront/internal/metrics"
	custommiddleware "github.com/mmeshcher/smm-storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware SMM-витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(metrics.InstrumentHandler)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	if h.rateLimiter != nil {
		r.Use(h.rateLimiter.Handler)
	}

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", h.ListCategories)
			r.Get("/services", h.ListServices)
		})

		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/profile", h.GetProfile)
				r.Post("/profile", h.ProvisionProfile)

				r.Get("/balance", h.GetBalance)
				r.Get("/ledger", h.GetLedger)

				r.Get("/balance-requests", h.ListMyBalanceRequests)
				r.Post("/balance-requests", h.SubmitBalanceRequest)

				r.Get("/orders", h.ListMyOrders)
				r.Post("/orders", h.PlaceOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.AdminOnly(h.service, h.writeServiceError))

			r.Get("/stats", h.Stats)

			r.Get("/users", h.ListUsers)
			r.Post("/users/{id}/toggle-admin", h.ToggleAdmin)
			r.Post("/users/{id}/balance", h.AdjustBalance)
			r.Get("/users/{id}/reconcile", h.Reconcile)

			r.Get("/balance-requests", h.ListBalanceRequests)
			r.Post("/balance-requests/{id}/approve", h.ApproveBalanceRequest)
			r.Post("/balance-requests/{id}/reject", h.RejectBalanceRequest)

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{id}", h.RenameCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)

			r.Get("/services", h.ListServices)
			r.Post("/services", h.CreateService)
			r.Put("/services/{id}", h.UpdateService)
			r.Delete("/services/{id}", h.DeleteService)

			r.Get("/orders", h.ListOrders)
			r.Post("/orders/{id}/status", h.AdvanceOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
