package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/data/mongo"
	"github.com/escrow-ledger/internal/data/postgres"
	"github.com/escrow-ledger/internal/event_relay/outbox_poller"
	"github.com/escrow-ledger/internal/event_relay/projector"
	"github.com/escrow-ledger/internal/event_relay/sweeper"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/logger"
	"github.com/escrow-ledger/internal/platform/messaging/consumers"
	"github.com/escrow-ledger/internal/platform/messaging/producers"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/escrow-ledger/internal/wallet_ledger"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("event_relay")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Event Relay",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure audit indexes", "error", err)
		os.Exit(1)
	}

	provider, err := payment.NewProvider(&cfg.Payment)
	if err != nil {
		log.Error("Failed to initialize payment provider", "error", err)
		os.Exit(1)
	}

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// The sweeper releases expired holds through the ledger so each release is
	// recorded in the outbox like any other balance change.
	ledger := wallet_ledger.New(wallet_ledger.Dependencies{
		DB:           postgresDB,
		Wallets:      postgres.NewWalletRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Holds:        postgres.NewHoldRepository(log, postgresDB),
		Rules:        postgres.NewRuleRepository(log, postgresDB),
		Events:       events.NewRecorder(outboxRepo, log),
		Payments:     provider,
		Config:       &cfg.Ledger,
		Logger:       log.With("component", "wallet_ledger"),
	})

	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize events Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	pooled, err := projector.NewWorkerPoolProjector(projector.NewAuditProjector(auditRepo, log), &cfg.WorkerPool, log)
	if err != nil {
		log.Error("Failed to initialize projector worker pool", "error", err)
		os.Exit(1)
	}
	eventHandler := projector.NewEventHandler(log, pooled, dlqProducer)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewKafkaEventPublisher(outboxRepo, eventProducer, log),
		log,
	)
	holdSweeper := sweeper.New(&cfg.Ledger, ledger, log)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer", "topic", cfg.Kafka.EventsTopic, "group", cfg.Kafka.ConsumerGroup)
	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Hold Sweeper",
			"interval", cfg.Ledger.HoldSweepInterval.String(),
			"batch_size", cfg.Ledger.HoldSweepBatch,
		)
		holdSweeper.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All loops stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	log.Info("Shutting down projector pool", "running_workers", pooled.Running())
	pooled.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing events Kafka producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Event Relay shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Event Relay shutdown completed with errors")
	} else {
		log.Info("Event Relay shutdown completed successfully")
	}
}
