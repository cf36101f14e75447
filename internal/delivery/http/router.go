package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/http/handler"
	"github.com/Pesokrava/storefront/internal/delivery/http/middleware"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
)

const requestTimeout = 30 * time.Second

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

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(metrics.Middleware("storefront-api"))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	submitLimit := middleware.RateLimit(rt.cfg.RateLimit.RequestsPerSecond, rt.cfg.RateLimit.Burst, rt.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", rt.productHandler.Create)
			r.Get("/", rt.productHandler.List)
			r.Get("/{id}", rt.productHandler.GetByID)
			r.Put("/{id}", rt.productHandler.Update)
			r.Delete("/{id}", rt.productHandler.Delete)
			r.Get("/{id}/reviews", rt.reviewHandler.GetByProductID)
			r.With(submitLimit).Post("/{id}/reviews", rt.reviewHandler.Submit)
		})

		r.Get("/reviews/{id}", rt.reviewHandler.GetByID)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", rt.categoryHandler.Tree)
			r.Post("/", rt.categoryHandler.Create)
			r.Get("/slug/{slug}", rt.categoryHandler.GetBySlug)
			r.Get("/{id}", rt.categoryHandler.GetByID)
			r.Put("/{id}", rt.categoryHandler.Rename)
			r.Put("/{id}/parent", rt.categoryHandler.Move)
			r.Delete("/{id}", rt.categoryHandler.Delete)
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
