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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"payment-webhook-service/internal/common/logging"
	"payment-webhook-service/internal/config"
	"payment-webhook-service/internal/dedup"
	"payment-webhook-service/internal/handlers"
	"payment-webhook-service/internal/middleware"
	"payment-webhook-service/internal/server"
	"payment-webhook-service/internal/signature"
	"payment-webhook-service/internal/storage"
	"payment-webhook-service/internal/storage/postgres"
	"payment-webhook-service/internal/storage/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger(cfg.LogLevel)
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	store, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	var cache *dedup.Cache
	if cfg.RedisAddress != "" {
		redisDB, _ := strconv.Atoi(cfg.RedisDB)
		poolSize, _ := strconv.Atoi(cfg.RedisPoolSize)

		cache, err = dedup.NewCache(&dedup.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       redisDB,
			PoolSize: poolSize,
			TTL:      cfg.DedupCacheTTL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize dedup cache: %v", err)
		}
		defer cache.Close()
	}

	verifier := signature.NewVerifier(cfg.SignatureHeader, cfg.WebhookSecret, cfg.AllowTestSignature, logger)
	h := handlers.New(store, cache, verifier, cfg.MaxBodyBytes, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimitEnabled, cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)

	// The webhook route handles its own raw body capture and is the only
	// one behind the rate limiter; everything else uses standard decoding.
	router.Handle("/webhook/payments", limiter.Middleware(http.HandlerFunc(h.HandleWebhook))).Methods("POST")
	router.HandleFunc("/payments/{payment_id}/events", h.HandleListPaymentEvents).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	srv := server.New(router, cfg.Port, cfg.TLSCert, cfg.TLSKey)
	srv.Start()

	logger.Info("Payment webhook service started",
		logging.String("port", cfg.Port),
		logging.String("database_type", cfg.DatabaseType),
		logging.Bool("dedup_cache", cache != nil),
		logging.Bool("test_signature_allowed", cfg.AllowTestSignature),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-srv.Err():
		logger.Error("Server failed", err)
		os.Exit(1)
	case sig := <-quit:
		logger.Info("Shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}

// newStorage selects the event store adapter from configuration
func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.DatabaseType {
	case "postgres":
		return postgres.NewAdapter(&postgres.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDB,
			Username: cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		})
	default:
		return sqlite.NewAdapter(&sqlite.Config{
			DatabasePath: cfg.DatabasePath,
		})
	}
}
