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

	"github.com/Pesokrava/shop_backend/internal/config"
	"github.com/Pesokrava/shop_backend/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/shop_backend/internal/delivery/http"
	"github.com/Pesokrava/shop_backend/internal/delivery/http/handler"
	"github.com/Pesokrava/shop_backend/internal/pkg/cache"
	"github.com/Pesokrava/shop_backend/internal/pkg/database"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/shop_backend/internal/repository/cache"
	"github.com/Pesokrava/shop_backend/internal/repository/postgres"
	"github.com/Pesokrava/shop_backend/internal/usecase/category"
	"github.com/Pesokrava/shop_backend/internal/usecase/product"
	"github.com/Pesokrava/shop_backend/internal/usecase/review"

	_ "github.com/Pesokrava/shop_backend/docs"
)

// @title Shop Backend API
// @version 1.0
// @description An e-commerce backend with products, categories, reviews, order-driven stock, caching and event notifications.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/shop_backend
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Products
// @tag.description Product management endpoints

// @tag.name Reviews
// @tag.description Review management endpoints

// @tag.name Categories
// @tag.description Category management endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Shop Backend API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	appLogger.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}
	appLogger.Info("Database migrations applied")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	streamConfig := events.NewStreamConfig(publisher.JetStream(), appLogger)
	if err := streamConfig.EnsureStreams(); err != nil {
		appLogger.Fatal("Failed to ensure JetStream streams", err)
	}

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.ProductRatingTTL,
		cfg.Cache.ReviewsListTTL,
	)

	categoryService := category.NewService(categoryRepo, appLogger)
	productService := product.NewService(productRepo, categoryService, orderRepo, appLogger)
	reviewService := review.NewService(reviewRepo, productService, redisCache, publisher, appLogger)

	productHandler := handler.NewProductHandler(productService, appLogger)
	reviewHandler := handler.NewReviewHandler(reviewService, appLogger)
	categoryHandler := handler.NewCategoryHandler(categoryService, appLogger)

	router := httpDelivery.NewRouter(productHandler, reviewHandler, categoryHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
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
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
