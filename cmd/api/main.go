package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/storefront/internal/delivery/http"
	"github.com/Pesokrava/storefront/internal/delivery/http/handler"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/cache"
	"github.com/Pesokrava/storefront/internal/pkg/database"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/storefront/internal/repository/cache"
	"github.com/Pesokrava/storefront/internal/repository/memory"
	"github.com/Pesokrava/storefront/internal/repository/postgres"
	"github.com/Pesokrava/storefront/internal/usecase/category"
	"github.com/Pesokrava/storefront/internal/usecase/product"
	"github.com/Pesokrava/storefront/internal/usecase/review"

	_ "github.com/Pesokrava/storefront/docs"
)

// @title Storefront Catalog API
// @version 1.0
// @description Catalog back end of the storefront: products, reviews with transactional rating aggregation, and the category tree.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/storefront
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Products
// @tag.description Product management endpoints

// @tag.name Reviews
// @tag.description Review submission and listing endpoints

// @tag.name Categories
// @tag.description Category tree endpoints

// appCache is satisfied by both the Redis cache and the no-op cache
type appCache interface {
	product.Cache
	review.Cache
	category.Cache
}

// appPublisher is satisfied by the JetStream publisher and events.Discard
type appPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type stores struct {
	products   domain.ProductRepository
	reviews    domain.ReviewStore
	categories domain.CategoryRepository
	close      func()
}

func openStores(cfg *config.Config, appLogger *logger.Logger) stores {
	if cfg.Storage == config.StorageMemory {
		appLogger.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return stores{
			products:   store.Products(),
			reviews:    store.Reviews(),
			categories: store.Categories(),
			close:      func() {},
		}
	}

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	appLogger.Info("Connected to PostgreSQL successfully")

	if cfg.Database.AutoMigrate {
		applied, err := database.RunMigrations(db, cfg.Database.MigrationsDir)
		if err != nil {
			appLogger.Fatal("Failed to run migrations", err)
		}
		appLogger.With("migrations", applied).Info("Migrations applied")
	}

	tx := postgres.NewTxRunner(db, postgres.TxOptionsFromConfig(cfg.Database.Tx))
	return stores{
		products:   postgres.NewProductRepository(db, tx),
		reviews:    postgres.NewReviewRepository(db, tx),
		categories: postgres.NewCategoryRepository(db, tx),
		close: func() {
			if err := db.Close(); err != nil {
				appLogger.Error("Failed to close database", err)
			}
		},
	}
}

func openCache(cfg *config.Config, appLogger *logger.Logger) (appCache, func()) {
	if !cfg.Redis.Enabled {
		appLogger.Warn("Redis disabled, caching is off")
		return cacheRepo.Noop{}, func() {}
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	appLogger.Info("Connected to Redis successfully")

	redisCache := cacheRepo.NewRedisCache(redisClient, cacheRepo.TTLs{
		Product:      cfg.Cache.ProductTTL,
		ReviewsList:  cfg.Cache.ReviewsListTTL,
		CategoryTree: cfg.Cache.CategoryTreeTTL,
	})
	return redisCache, func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("Failed to close Redis client", err)
		}
	}
}

func openPublisher(cfg *config.Config, appLogger *logger.Logger) (appPublisher, func()) {
	if !cfg.NATS.Enabled {
		appLogger.Warn("NATS disabled, events are discarded")
		return events.Discard{}, func() {}
	}

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	if err := publisher.EnsureStreams(events.ReviewsStream, events.CatalogStream); err != nil {
		appLogger.Fatal("Failed to ensure JetStream streams", err)
	}
	return publisher, publisher.Close
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, logger.WithLevel(cfg.LogLevel), logger.WithService("storefront-api"))
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Storefront Catalog API...")

	st := openStores(cfg, appLogger)
	defer st.close()

	catalogCache, closeCache := openCache(cfg, appLogger)
	defer closeCache()

	publisher, closePublisher := openPublisher(cfg, appLogger)
	defer closePublisher()

	productService := product.NewService(st.products, catalogCache, publisher, appLogger)
	reviewService := review.NewService(st.reviews, catalogCache, publisher, appLogger)
	categoryService := category.NewService(st.categories, catalogCache, publisher, appLogger)

	router := httpDelivery.NewRouter(
		handler.NewProductHandler(productService, appLogger),
		handler.NewReviewHandler(reviewService, appLogger),
		handler.NewCategoryHandler(categoryService, appLogger),
		cfg,
		appLogger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
		return
	}

	appLogger.Info("Server stopped gracefully")
}
