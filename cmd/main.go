package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ShahbozQurbonov/roles-permissions-tz/docs/swagger"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/config"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/tasks"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/tasks/rate"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

func main() {
	logger := logger.New("roles-permissions")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	dbInstance := db.GetDB()

	// Login throttling needs Redis; without it logins are not throttled
	var limiter handlers.LoginLimiter
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		limiter = rate.NewLoginLimiter(redisClient, rate.RateLimit{
			Window:      cfg.Login.Window,
			MaxAttempts: cfg.Login.MaxAttempts,
		})
	}

	// Initialize API server
	apiServer := api.NewServer(cfg, dbInstance, limiter)

	var (
		taskServer    *tasks.Server
		taskScheduler *tasks.Scheduler
	)
	if cfg.Tasks.Enabled {
		taskServer = tasks.NewServer(
			cfg.Redis.Addr(),
			cfg.Redis.Username,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Tasks.Concurrency,
			tasks.NewTaskHandler(apiServer.Sessions()),
			logger,
		)
		if err := taskServer.Start(); err != nil {
			logger.Error("Task server error", err)
		}

		taskScheduler = tasks.NewScheduler(
			cfg.Redis.Addr(),
			cfg.Redis.Username,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Tasks.SessionPurgeCron,
			logger,
		)
		if err := taskScheduler.Start(); err != nil {
			logger.Error("Task scheduler error", err)
		}

		// Clear sessions that expired while the service was down
		taskClient := tasks.NewTaskClient(cfg.Redis.Addr(), cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err := taskClient.EnqueueSessionPurge(context.Background()); err != nil {
			logger.Warn("Startup session purge not queued: %v", err)
		}
		if err := taskClient.Close(); err != nil {
			logger.Warn("Failed to close task client: %v", err)
		}
	}

	go func() {
		logger.Success("API server started")

		// Swagger documentation
		swagger.SwaggerInfo.Host = cfg.Server.PublicHost()

		if err := apiServer.Start(); err != nil {
			logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if taskScheduler != nil {
		taskScheduler.Stop()
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	logger.Info("Servers shutdown gracefully")
}
