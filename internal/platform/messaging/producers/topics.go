package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// topicConfig returns the creation settings for name, defaulting partitions and replicas to one
func topicConfig(cfg *config.KafkaConfig, name string) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

// ensureTopic creates the topic unless a partition read shows it already exists.
// Partition reads are retried because a broker that just started may not know its topics yet.
func ensureTopic(ctx context.Context, admin TopicAdmin, tc kafka.TopicConfig, backoff time.Duration, logger *slog.Logger) error {
	logger = logger.With("topic", tc.Topic)

	var lastErr error
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err := admin.ReadPartitions(tc.Topic)
		if err == nil && len(partitions) > 0 {
			logger.Debug("Kafka topic exists", "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		lastErr = err
		logger.Warn("Failed to read topic partitions, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	logger.Info("Creating Kafka topic",
		"partitions", tc.NumPartitions,
		"replication_factor", tc.ReplicationFactor,
		"last_read_error", lastErr,
	)
	if err := admin.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, err)
	}
	return nil
}

// dialAndEnsureTopic opens a short-lived connection to the broker to make sure name exists
func dialAndEnsureTopic(ctx context.Context, cfg *config.KafkaConfig, name string, logger *slog.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(ctx, conn, topicConfig(cfg, name), topicReadBackoff, logger)
}
