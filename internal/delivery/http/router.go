package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/shop_backend/internal/config"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/handler"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/middleware"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/response"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	productHandler  *handler.ProductHandler
	reviewHandler   *handler.ReviewHandler
	categoryHandler *handler.CategoryHandler
	logger          *logger.Logger
	cfg             *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	productHandler *handler.ProductHandler,
	reviewHandler *handler.ReviewHandler,
	categoryHandler *handler.CategoryHandler,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		productHandler:  productHandler,
		reviewHandler:   reviewHandler,
		categoryHandler: categoryHandler,
		logger:          log,
		cfg:             cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", rt.productHandler.Create)
			r.Get("/", rt.productHandler.List)
			r.Get("/{id}", rt.productHandler.GetByID)
			r.Put("/{id}", rt.productHandler.Update)
			r.Delete("/{id}", rt.productHandler.Delete)
			r.Patch("/{id}/stock", rt.productHandler.UpdateStock)
			r.Get("/{id}/reviews", rt.reviewHandler.ListByProduct)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", rt.reviewHandler.Create)
			r.Get("/", rt.reviewHandler.List)
			r.Get("/lookup", rt.reviewHandler.Lookup)
			r.Get("/{id}", rt.reviewHandler.GetByID)
			r.Put("/{id}", rt.reviewHandler.Update)
			r.Delete("/{id}", rt.reviewHandler.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", rt.categoryHandler.Create)
			r.Get("/", rt.categoryHandler.List)
			r.Get("/{id}", rt.categoryHandler.GetByID)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
