// Command api runs the imgproxy HTTP server: it loads configuration,
// assembles the dependency container, starts the background scheduler, and
// serves traffic until SIGINT/SIGTERM, draining in-flight requests before
// exit. Modeled on cmd/api/main.go's startup/shutdown sequence in the
// teacher.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imgproxy/internal/config"
	"imgproxy/internal/di"
)

// shutdownTimeout bounds how long in-flight requests get to drain once
// shutdown begins, per spec.md §5's 30s gateway timeout in release builds.
const shutdownTimeout = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}
	logger := container.Logger

	container.Scheduler.Start()

	srv := &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      container.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, draining in-flight requests")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	container.Scheduler.Shutdown(shutdownCtx)

	if err := container.Close(); err != nil {
		logger.Error("container close error", zap.Error(err))
	}

	_ = logger.Sync()
	log.Println("server stopped")
}
