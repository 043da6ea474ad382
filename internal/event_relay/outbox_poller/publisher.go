package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/platform/messaging/producers"
)

// EventPublisher ships one outbox message to the events topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher publishes the message envelope keyed by aggregate id and marks
// the outbox row PROCESSED once the broker has acknowledged it
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With(
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"event_type", message.EventType,
	)

	if err := p.producer.Publish(ctx, message.AggregateID.String(), message.Envelope()); err != nil {
		return fmt.Errorf("publish outbox %d: %w", message.ID, err)
	}

	// A failure here republishes the event on the next tick; consumers dedupe on event id
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but failed to mark outbox message as PROCESSED", "error", err)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Debug("Outbox message published")
	return nil
}
