package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/api"
	"github.com/akylbek/payment-system/pix-payments/internal/brcode"
	"github.com/akylbek/payment-system/pix-payments/internal/clients"
	"github.com/akylbek/payment-system/pix-payments/internal/config"
	"github.com/akylbek/payment-system/pix-payments/internal/events"
	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/lock"
	"github.com/akylbek/payment-system/pix-payments/internal/notify"
	"github.com/akylbek/payment-system/pix-payments/internal/repository"
	"github.com/akylbek/payment-system/pix-payments/internal/service"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry("pix-payments", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting PIX payments service")

	// Merchant configuration is static; a bad one is fatal here, never per request.
	encoder, err := brcode.NewEncoder(brcode.Merchant{
		Key:  cfg.MerchantKey,
		Name: cfg.MerchantName,
		City: cfg.MerchantCity,
	})
	if err != nil {
		telemetry.Logger.Fatal("Invalid merchant configuration", zap.Error(err))
	}

	// Payment request store
	var repo interfaces.PaymentRequestRepository
	switch cfg.Storage {
	case "memory":
		telemetry.Logger.Warn("Using in-memory storage; payment requests will not survive a restart")
		repo = repository.NewMemoryRepository()
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		pgRepo := repository.NewPaymentRequestRepository(db)
		if err := pgRepo.InitDB(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		repo = pgRepo
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	// Connect to Kafka
	kafkaWriter := events.NewWriter(cfg.KafkaBrokers)
	defer kafkaWriter.Close()

	notifier := notify.NewNATSNotifier(nc)
	retryQueue := notify.NewRedisQueue(redisClient)

	lifecycle := service.NewLifecycle(repo, encoder, events.NewKafkaPublisher(kafkaWriter), service.Options{
		ReferencePrefix: cfg.ReferencePrefix,
		ConfirmGrace:    cfg.ConfirmGrace,
	})
	confirmer := service.NewConfirmer(
		lifecycle,
		clients.NewOrdersClient(nc),
		clients.NewInventoryClient(nc),
		notifier,
		retryQueue,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go notify.NewRetryWorker(retryQueue, notifier, cfg.NotifyRetryInterval).Run(ctx)

	if cfg.SweepInterval > 0 {
		hostname, _ := os.Hostname()
		locker := lock.NewRedisLocker(redisClient, hostname+"-"+uuid.NewString())
		go service.NewSweeper(lifecycle, locker, cfg.SweepInterval).Run(ctx)
	}

	router := api.NewRouter(lifecycle, confirmer, api.NewStaticTokenAuthenticator(cfg.OperatorTokens))

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("PIX payments service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
