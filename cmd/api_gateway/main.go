package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/escrow-ledger/internal/api_gateway"
	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/data/cache"
	"github.com/escrow-ledger/internal/data/postgres"
	"github.com/escrow-ledger/internal/dispute_engine"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/logger"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/redis/go-redis/v9"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Migrations run as part of opening the pool
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
	}

	provider, err := payment.NewProvider(&cfg.Payment)
	if err != nil {
		log.Error("Failed to initialize payment provider", "error", err)
		os.Exit(1)
	}

	// Repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	recorder := events.NewRecorder(outboxRepo, log)

	ledger := wallet_ledger.New(wallet_ledger.Dependencies{
		DB:           postgresDB,
		Wallets:      postgres.NewWalletRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Holds:        postgres.NewHoldRepository(log, postgresDB),
		Rules:        postgres.NewRuleRepository(log, postgresDB),
		Events:       recorder,
		Payments:     provider,
		Config:       &cfg.Ledger,
		Logger:       log.With("component", "wallet_ledger"),
	})

	// The engines take interfaces; a nil *redis.Client must not become a non-nil cache.
	var (
		escrowCache escrow.StateCache
		fastCounter dispute.AssignmentCounter
	)
	if redisClient != nil {
		escrowCache = cache.NewEscrowStateCache(redisClient, cfg.Redis.KeyPrefix)
		fastCounter = cache.NewAssignmentCounter(log, redisClient, cfg.Redis.KeyPrefix)
	}

	escrows := escrow_engine.New(escrow_engine.Dependencies{
		DB:      postgresDB,
		Escrows: postgres.NewEscrowRepository(log, postgresDB),
		Ledger:  ledger,
		Events:  recorder,
		Cache:   escrowCache,
		Config:  &cfg.Escrow,
		Logger:  log.With("component", "escrow_engine"),
	})

	jobs := postgres.NewJobRepository(log, postgresDB)
	disputes := dispute_engine.New(dispute_engine.Dependencies{
		DB:       postgresDB,
		Disputes: postgres.NewDisputeRepository(log, postgresDB),
		Jobs:     jobs,
		Users:    postgres.NewUserRepository(log, postgresDB),
		Escrows:  escrows,
		Counter:  dispute_engine.NewFallbackCounter(log, fastCounter, postgres.NewAssignmentCounter(log, postgresDB)),
		Events:   recorder,
		Config:   &cfg.Dispute,
		Logger:   log.With("component", "dispute_engine"),
	})

	checks := map[string]api_gateway.HealthCheck{
		"postgres": postgresDB.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Wallets:  service.NewWalletService(log, ledger),
		Escrows:  service.NewEscrowService(log, escrows, jobs),
		Disputes: service.NewDisputeService(log, disputes),
		Checks:   checks,
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	// In-flight requests finish before the stores they use go away
	if err = server.Stop(context.Background(), cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if redisClient != nil {
		if cerr := redisClient.Close(); cerr != nil {
			log.Error("Error closing Redis client", "error", cerr)
		}
	}

	postgresDB.Close()

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
