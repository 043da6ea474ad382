package projector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

var errMissingEventID = errors.New("event envelope has no event_id")

// EventHandler decodes messages from the events topic and hands them to a Projector.
// Messages that can never be projected are parked on the DLQ so the partition keeps moving.
type EventHandler struct {
	projector Projector
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewEventHandler(logger *slog.Logger, projector Projector, dlq producers.DeadLetterPublisher) *EventHandler {
	return &EventHandler{projector: projector, dlq: dlq, logger: logger}
}

// HandleMessage returns nil when the message may be committed
func (h *EventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var env outbox.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return h.deadLetter(ctx, key, value, fmt.Errorf("failed to unmarshal event envelope: %w", err))
	}
	if env.EventID == uuid.Nil {
		return h.deadLetter(ctx, key, value, errMissingEventID)
	}

	logger := h.logger.With("event_id", env.EventID.String(), "event_type", env.EventType)
	if err := h.projector.Project(ctx, env); err != nil {
		logger.Error("Failed to project event", "error", err)
		return fmt.Errorf("projecting event %s failed: %w", env.EventID, err)
	}

	logger.Debug("Event projected")
	return nil
}

func (h *EventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Unprocessable event message", "error", cause, "message_key", string(key))

	if h.dlq == nil {
		return cause
	}
	if err := h.dlq.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			h.logger.Warn("DLQ disabled, dropping unprocessable message", "message_key", string(key))
			return nil
		}
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return cause
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", cause.Error())
	return nil
}
