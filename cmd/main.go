package main

import (
	"fmt"

	"github.com/ELEVATE-Project/chat-communications/internal/handler"
	"github.com/ELEVATE-Project/chat-communications/internal/hash"
	"github.com/ELEVATE-Project/chat-communications/internal/middleware"
	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"github.com/ELEVATE-Project/chat-communications/internal/platform/rocketchat"
	"github.com/ELEVATE-Project/chat-communications/internal/service"
	"github.com/ELEVATE-Project/chat-communications/internal/store"
	"github.com/ELEVATE-Project/chat-communications/pkg/config"
	"github.com/ELEVATE-Project/chat-communications/pkg/database"
	"github.com/ELEVATE-Project/chat-communications/pkg/logger"
	"github.com/ELEVATE-Project/chat-communications/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// newAdapter selects the chat platform implementation from configuration.
// One named variant per platform, injected here rather than resolved through
// any ambient lookup.
func newAdapter(cfg *config.Config) (platform.Adapter, error) {
	switch cfg.Chat.Platform {
	case "rocketchat":
		return rocketchat.New(cfg.Chat), nil
	default:
		return nil, fmt.Errorf("unsupported chat platform: %q", cfg.Chat.Platform)
	}
}

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting chat communications service...", zap.String("environment", cfg.Server.Env))

	// Required secrets must be present before anything else runs
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize database (includes migrations)
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Build the credential hasher
	hasher, err := hash.New(cfg.Hash)
	if err != nil {
		log.Fatal("Failed to initialize hasher", zap.Error(err))
	}

	// Select and build the chat platform adapter
	adapter, err := newAdapter(cfg)
	if err != nil {
		log.Fatal("Failed to initialize chat platform adapter", zap.Error(err))
	}
	log.Info("Chat platform adapter initialized", zap.String("platform", cfg.Chat.Platform))

	// Wire the mapping service and handlers
	userStore := store.New(database.GetDB())
	mappingService := service.New(userStore, adapter, hasher, log)
	handler.InitBridgeHandler(mappingService, cfg)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", prometheus.HandlerFunc())

	// Bridge routes - guarded by the internal access token
	chat := e.Group("/chat")
	chat.Use(middleware.InternalAccessMiddleware(cfg.Chat.InternalAccessKey))

	chat.POST("/users", handler.Signup)
	chat.POST("/login", handler.Login)
	chat.POST("/logout", handler.Logout)
	chat.POST("/rooms", handler.CreateRoom)
	chat.PUT("/users", handler.UpdateUser)
	chat.PUT("/users/avatar", handler.UpdateAvatar)
	chat.DELETE("/users/avatar", handler.RemoveAvatar)
	chat.PUT("/users/status", handler.SetActiveStatus)
	chat.GET("/users/mapping/:external_user_id", handler.UserMapping)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
