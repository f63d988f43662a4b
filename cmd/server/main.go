package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seojinhan/matjip-backend/config"
	"github.com/seojinhan/matjip-backend/internal/app/controller"
	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	"github.com/seojinhan/matjip-backend/internal/db"
	"github.com/seojinhan/matjip-backend/internal/middleware"
	"github.com/seojinhan/matjip-backend/internal/router"
	"github.com/seojinhan/matjip-backend/internal/scheduler"
	"github.com/seojinhan/matjip-backend/internal/storage"
	"github.com/seojinhan/matjip-backend/internal/watch"
	"github.com/seojinhan/matjip-backend/pkg/logger"
	"github.com/seojinhan/matjip-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting MATJIP Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	gormDB, err := db.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Watch fan-out. Redis is optional: without it, watch subscriptions
	// still work within this instance.
	broker := watch.NewBroker()
	defer broker.Close()
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer rdb.Close()
		broker.AttachRedis(rdb, cfg.Redis.Channel)
	}

	// Initialize repositories
	restaurantRepo := repository.NewRestaurantRepository(gormDB)
	reviewRepo := repository.NewReviewRepository(gormDB)

	// Initialize services
	photoStore := storage.NewS3Storage(cfg.S3)
	restaurantService := service.NewRestaurantService(restaurantRepo, broker)
	reviewService := service.NewReviewService(reviewRepo, broker)
	photoService := service.NewPhotoService(photoStore, restaurantRepo, broker)

	// Initialize controllers
	restaurantController := controller.NewRestaurantController(restaurantService)
	reviewController := controller.NewReviewController(reviewService)
	uploadController := controller.NewUploadController(photoService)
	watchController := controller.NewWatchController(restaurantService, reviewService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		restaurantController,
		reviewController,
		uploadController,
		watchController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Nightly aggregate reconciliation
	reconcileScheduler := scheduler.NewReconcileScheduler(reviewService)
	if err := reconcileScheduler.Start(); err != nil {
		logger.Fatal("Failed to start reconciliation scheduler", err)
	}
	defer reconcileScheduler.Stop()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
