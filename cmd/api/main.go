// Command api runs the suite as a standalone HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/infrastructure/config"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad()

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start config watcher", zap.Error(err))
	}
	defer watcher.Stop()
	watcher.OnChange(func(next *config.Config) {
		// Everything is wired at startup; the reload only tells the operator
		// what a restart would pick up.
		logger.Info("Configuration changed on disk, restart to apply",
			zap.String("database", next.Database.Driver),
			zap.String("events", next.Events.Driver),
			zap.String("logLevel", next.Logging.Level))
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.Database.Driver),
			zap.String("events", cfg.Events.Driver),
			zap.Bool("ai", cfg.AI.Enabled))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	container.Shutdown(shutdownCtx)
	log.Println("Server stopped")
}
