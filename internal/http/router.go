package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	JWTSecret          []byte
	CORSOrigins        []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig, carts *CartHandler, payments *PaymentHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Post("/add", carts.AddItem)
			r.Get("/user/{userId}", carts.ListCart)
			r.Put("/update/{itemId}", carts.UpdateCartQuantity)
			r.Delete("/remove/{itemId}", carts.RemoveCartItem)
			r.Post("/move-to-wishlist/{userId}", carts.MoveToWishlist)

			r.Post("/wishlist/add", carts.AddWishlistItem)
			r.Post("/wishlist/{userId}", carts.MoveToWishlist)
			r.Get("/user/wishlist/{userId}", carts.ListWishlist)
			r.Put("/wishlist/update/{itemId}", carts.UpdateWishlistQuantity)
			r.Delete("/wishlist/remove/{itemId}", carts.RemoveWishlistItem)
			r.Post("/wishlist/move-to-cart/{userId}", carts.MoveToCart)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-order", payments.CreateOrder)
			r.Post("/save-order", payments.SaveOrder)
			r.Get("/orders/{userId}", payments.ListOrders)
			r.Get("/order/{orderId}", payments.GetOrder)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
