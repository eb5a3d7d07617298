package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-backend/infrastructure/config"
	"gallery-backend/infrastructure/di"
	"gallery-backend/infrastructure/persistence/file"
	"gallery-backend/pkg/observability"

	"go.uber.org/zap"
)

// watchDebounce lets an editor finish replacing the templates file
const watchDebounce = 250 * time.Millisecond

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger

	if cfg.EnableTracing {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: "gallery-backend",
			Environment: cfg.Environment,
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    !cfg.IsProduction(),
		})
		if err != nil {
			logger.Error("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Error("Failed to flush traces", zap.Error(err))
				}
			}()
		}
	}

	// Hand edits to the local templates file invalidate cached catalog reads
	if cfg.StoreDriver == config.StoreFile {
		watcher, err := file.NewWatcher(cfg.TemplatesFile, watchDebounce, func() {
			if err := container.Cache.Clear(ctx); err != nil {
				logger.Error("Failed to clear catalog cache", zap.Error(err))
			}
		}, logger)
		if err != nil {
			logger.Error("Templates file watcher disabled", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Error("Templates file watcher disabled", zap.Error(err))
			watcher.Stop()
		} else {
			defer watcher.Stop()
		}
	}

	if container.Scheduler != nil {
		container.Scheduler.Start()
		defer container.Scheduler.Stop()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreDriver),
			zap.String("mirror", cfg.MirrorDriver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Clean up resources
	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
