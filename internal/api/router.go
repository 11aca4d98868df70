package api

import (
	"net/http"

	"github.com/example/clothing-shop/internal/api/middleware"
	"github.com/example/clothing-shop/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", handlers.Healthz)

	r.Route("/api", func(r chi.Router) {
		// Storefront
		r.Post("/checkout", handlers.Checkout)
		r.Post("/orders/track", handlers.TrackOrder)
		r.Post("/orders/{id}/payment-slips", handlers.UploadPaymentSlip)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))

			r.Post("/pos/orders", handlers.CreatePOSOrder)
			r.Get("/pos/catalog", handlers.POSCatalog)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", handlers.ListOrders)
				r.Get("/{id}", handlers.GetOrder)
				r.Put("/{id}/status", handlers.UpdateOrderStatus)
				r.Put("/{id}/payment-status", handlers.UpdatePaymentStatus)
			})

			r.Post("/products", handlers.CreateProduct)
			r.Post("/products/{id}/variants", handlers.CreateVariant)

			r.Route("/variants/{id}", func(r chi.Router) {
				r.Post("/receive", handlers.ReceiveStock)
				r.Put("/stock", handlers.AdjustStock)
				r.Get("/inventory", handlers.InventoryHistory)
				r.Get("/reconcile", handlers.Reconcile)
			})

			r.Post("/reservations", handlers.ReserveStock)
			r.Delete("/reservations/{id}", handlers.ReleaseReservation)

			r.Get("/inventory/alerts", handlers.LowStockAlerts)
			r.Get("/inventory/recent", handlers.RecentMoves)
		})
	})

	return r
}
