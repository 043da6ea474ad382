package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EventProducer publishes domain events to the events topic. Writes are synchronous so
// the outbox only marks a message processed once Kafka has acknowledged it.
type EventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

var _ MessagePublisher = (*EventProducer)(nil)

// NewEventProducer creates the events producer and ensures the topic exists
func NewEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EventProducer, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("kafka events topic is not configured")
	}

	if err := dialAndEnsureTopic(ctx, cfg, cfg.EventsTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure events topic %s exists: %w", cfg.EventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers),
		// Hash keeps every event of one aggregate on one partition, in order
		Balancer:     &kafka.Hash{},
		Topic:        cfg.EventsTopic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &EventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventsTopic,
	}, nil
}

func (p *EventProducer) Publish(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event for key %s: %w", key, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EventProducer) Close() error {
	p.logger.Info("Closing Kafka event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
