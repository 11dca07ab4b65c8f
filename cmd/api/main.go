package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-sandbox/config"
	"checkout-sandbox/internal/adapter/gateway/carrier"
	"checkout-sandbox/internal/adapter/gateway/payment"
	httpHandler "checkout-sandbox/internal/adapter/http/handler"
	pgStorage "checkout-sandbox/internal/adapter/storage/postgres"
	redisStorage "checkout-sandbox/internal/adapter/storage/redis"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/internal/service"
	"checkout-sandbox/pkg/logger"
	"checkout-sandbox/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	response.SetIncludeDetails(cfg.Server.Mode != "release")

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("carrier_env", cfg.Carrier.Environment).
		Msg("Starting Checkout Sandbox")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories and caches
	sessionRepo := pgStorage.NewSessionRepo(pool)
	quoteCache := redisStorage.NewQuoteCache(rdb)

	// Initialize external gateway clients
	gatewayClient := payment.NewClient(cfg.Gateway, &http.Client{Timeout: 30 * time.Second}, log)
	carrierClient := carrier.NewClient(cfg.Carrier, log)

	// Initialize business services
	sessionSvc := service.NewSessionService(
		sessionRepo,
		gatewayClient,
		carrierClient,
		quoteCache,
		cfg.Carrier.CustomerCode,
		cfg.Gateway.Currency,
		log,
	)
	shipmentSvc := service.NewShipmentService(sessionRepo, carrierClient, cfg.Carrier.CustomerCode, log)
	notificationSvc := service.NewNotificationService(sessionSvc, shipmentSvc, sessionRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:      sessionSvc,
		ShipmentSvc:     shipmentSvc,
		NotificationSvc: notificationSvc,
		WebhookSecret:   cfg.Webhook.Secret,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
