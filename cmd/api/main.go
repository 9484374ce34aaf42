package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/api"
	"github.com/tim48-robot/disgitbot/internal/config"
	"github.com/tim48-robot/disgitbot/internal/logger"
	"github.com/tim48-robot/disgitbot/internal/storage"
	"github.com/tim48-robot/disgitbot/internal/storage/backend"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(zl)

	// Initialize storage
	docs, err := backend.Open(cfg)
	if err != nil {
		zl.Fatal("Failed to initialize storage", zap.String("type", cfg.StorageType), zap.Error(err))
	}
	store := storage.NewStore(docs)
	defer store.Close()

	// Setup routes
	router := api.SetupRoutes(api.NewHandler(store), zl)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	zl.Info("Starting API server",
		zap.String("addr", addr),
		zap.String("storage", cfg.StorageType))

	if err := router.Run(addr); err != nil {
		zl.Error("Failed to start server", zap.Error(err))
		os.Exit(1)
	}
}
