package router

import (
	"net/http"

	"fulfillment-api/internal/handler"
	"fulfillment-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler           *handler.Handler
	OrderHandler      *handler.OrderHandler
	ProductHandler    *handler.ProductHandler
	AdminHandler      *handler.AdminHandler
	AntipublicHandler *handler.AntipublicHandler
	Events            http.HandlerFunc
	AdminMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.OrderHandler != nil {
			r.Post("/orders", cfg.OrderHandler.CreateOrder)
			r.Get("/orders/{order_id}", cfg.OrderHandler.GetOrder)
			r.Get("/users/{user_id}/orders", cfg.OrderHandler.ListUserOrders)
		}

		if cfg.ProductHandler != nil {
			r.Get("/products", cfg.ProductHandler.ListProducts)
			r.Get("/products/{name}", cfg.ProductHandler.GetProduct)
		}

		// the event stream carries buyer identities; admin keys only
		if cfg.Events != nil {
			if cfg.AdminMiddleware != nil {
				r.With(cfg.AdminMiddleware).Get("/events", cfg.Events)
			} else {
				r.Get("/events", cfg.Events)
			}
		}

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			if cfg.AdminMiddleware != nil {
				r.Use(cfg.AdminMiddleware)
			}

			if cfg.ProductHandler != nil {
				r.Post("/products", cfg.ProductHandler.UpsertProduct)
				r.Delete("/products/{name}", cfg.ProductHandler.DeleteProduct)
				r.Post("/products/{name}/restock", cfg.ProductHandler.Restock)
				r.Post("/stock/sync", cfg.ProductHandler.SyncStock)
			}

			if cfg.AdminHandler != nil {
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Delete("/cooldowns", cfg.AdminHandler.ClearCooldowns)
				r.Delete("/cooldowns/{user_id}", cfg.AdminHandler.ClearCooldowns)
			}

			if cfg.AntipublicHandler != nil {
				r.Route("/antipublic", func(r chi.Router) {
					r.Post("/", cfg.AntipublicHandler.Add)
					r.Get("/stats", cfg.AntipublicHandler.Stats)
					r.Get("/users/{user_id}", cfg.AntipublicHandler.ByUser)
					r.Get("/{identity}", cfg.AntipublicHandler.Lookup)
				})
			}
		})
	})

	return r
}
