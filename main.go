package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/practice-engine/internal/config"
	"github.com/SAP-F-2025/practice-engine/internal/events"
	"github.com/SAP-F-2025/practice-engine/internal/handlers"
	"github.com/SAP-F-2025/practice-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/practice-engine/internal/services"
	"github.com/SAP-F-2025/practice-engine/internal/utils"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
	"github.com/SAP-F-2025/practice-engine/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize event publisher (if configured)
	var publisher events.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.Kafka.Brokers,
			TopicName:    cfg.Kafka.Topic,
			Logger:       slogLogger,
		})
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
	}

	// Initialize validator
	v := validator.NewValidator()

	// Initialize services
	serviceManager, err := services.NewServiceManager(services.ServiceManagerConfig{
		Repository:  repoManager.GetRepository(),
		Logger:      slogLogger,
		Validator:   v,
		Publisher:   publisher,
		RedisClient: redisClient,
	})
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, v, logger, cfg.Casdoor, repoManager.GetRepository().User())

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close services (releases the event publisher)
	if err := serviceManager.Close(); err != nil {
		log.Printf("Failed to close services: %v", err)
	}

	// Shutdown repositories (closes database and Redis connections)
	if err := repoManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown repositories: %v", err)
	}

	logger.Info("Server exited")
}
