package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"aidfinder-backend/config"
	"aidfinder-backend/internal/analytics"
	"aidfinder-backend/internal/api"
	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/db"
	"aidfinder-backend/internal/notification"
	"aidfinder-backend/internal/reservation"
	"aidfinder-backend/internal/seed"
	"aidfinder-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, cfg.Database.QueryTimeout)
	cat := catalog.New(appStore, logger.Named("catalog"))

	if cfg.Seed.Path != "" {
		file, err := seed.Load(cfg.Seed.Path)
		if err != nil {
			logger.Fatal("failed to read seed file", zap.String("path", cfg.Seed.Path), zap.Error(err))
		}
		if err := seed.Apply(ctx, file, appStore, cat, logger.Named("seed")); err != nil {
			logger.Fatal("failed to apply seed data", zap.Error(err))
		}
	}

	// Push notifications are optional; without VAPID keys requests are still
	// accepted, nobody is told about them.
	var (
		webpushOptions *webpush.Options
		notifier       reservation.Notifier
	)
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, logger.Named("notification"))
		pool.Start(ctx)
		logger.Info("notification pool started",
			zap.Int("workers", cfg.WorkerPool.Size), zap.Int("queue", cfg.WorkerPool.QueueSize))
		notifier = pool
	} else {
		logger.Warn("VAPID keys not configured, push notifications disabled")
	}

	coordinator := reservation.New(appStore, *cfg.Reservation.MaxDecrementRetries, notifier, logger.Named("reservation"))

	// Initialize router
	router := api.NewRouter(api.Deps{
		Store:       appStore,
		Catalog:     cat,
		Coordinator: coordinator,
		Analytics:   analytics.New(appStore),
		WebPush:     webpushOptions,
		Log:         logger.Named("api"),
	}, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        cfg.Server.CacheTTL,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
