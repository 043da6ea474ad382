// Package events writes domain events to the transactional outbox.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Recorder stores a domain event in the same database transaction as the change it describes
type Recorder interface {
	Record(ctx context.Context, tx pgx.Tx, eventType, aggregateType string, aggregateID uuid.UUID, payload any) error
}

type OutboxRecorder struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewRecorder(outboxRepo outbox.Repository, logger *slog.Logger) Recorder {
	return &OutboxRecorder{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record marshals payload and inserts a pending outbox message through tx
func (r *OutboxRecorder) Record(ctx context.Context, tx pgx.Tx, eventType, aggregateType string, aggregateID uuid.UUID, payload any) error {
	msg, err := outbox.NewMessage(eventType, aggregateType, aggregateID, payload)
	if err != nil {
		r.logger.Error("Failed to marshal outbox payload",
			"event_type", eventType,
			"aggregate_id", aggregateID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for %s %s: %w", eventType, aggregateID, err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		r.logger.Error("Failed to create outbox message",
			"event_type", eventType,
			"aggregate_id", aggregateID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for %s %s: %w", eventType, aggregateID, err)
	}

	r.logger.Debug("Outbox message created",
		"event_type", eventType,
		"event_id", msg.EventID.String(),
		"outbox_id", msg.ID,
	)
	return nil
}
