package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/config"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/middleware"
)

// Routes bundles the handlers served by the API
type Routes struct {
	Health  *HealthHandler
	Product *ProductHandler
	Coupon  *CouponHandler
	Order   *OrderHandler
}

// NewRouter builds the chi router with middleware and all API routes.
// Product and health routes are public; everything else needs an api_key.
func NewRouter(routes Routes, auth config.AuthConfig, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", routes.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/product", routes.Product.ListProducts)
		r.Get("/product/{productId}", routes.Product.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(auth))

			r.Get("/coupon/stats", routes.Coupon.GetStats)
			r.Get("/coupon/{couponCode}", routes.Coupon.ValidateCoupon)

			r.Post("/checkout/quote", routes.Order.Quote)

			r.Post("/order", routes.Order.CreateOrder)
			r.Get("/order", routes.Order.ListOrders)
			r.Get("/order/{orderId}", routes.Order.GetOrder)
			r.Post("/order/{orderId}/transition", routes.Order.TransitionOrder)
		})
	})

	return r
}
