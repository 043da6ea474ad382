package audit

import (
	"encoding/json"
	"time"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/google/uuid"
)

// Entry is one projected domain event in the audit trail
type Entry struct {
	EventID       uuid.UUID      `json:"event_id" bson:"event_id"`
	EventType     string         `json:"event_type" bson:"event_type"`
	AggregateType string         `json:"aggregate_type" bson:"aggregate_type"`
	AggregateID   uuid.UUID      `json:"aggregate_id" bson:"aggregate_id"`
	Payload       map[string]any `json:"payload" bson:"payload"`
	Reference     string         `json:"reference,omitempty" bson:"reference,omitempty"`
	Amount        int64          `json:"amount,omitempty" bson:"amount,omitempty"`
	NeedsReview   bool           `json:"needs_review" bson:"needs_review"`
	OccurredAt    time.Time      `json:"occurred_at" bson:"occurred_at"`
	ProjectedAt   time.Time      `json:"projected_at" bson:"projected_at"`
}

// reviewEvents are reconciliation events that need a human to look at them
var reviewEvents = map[string]bool{
	outbox.EventEscrowCompensated: true,
	outbox.EventPayoutReversed:    true,
}

// FromEnvelope builds an audit entry from a published event
func FromEnvelope(env outbox.Envelope) (*Entry, error) {
	payload := map[string]any{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, err
		}
	}

	e := &Entry{
		EventID:       env.EventID,
		EventType:     env.EventType,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		Payload:       payload,
		NeedsReview:   reviewEvents[env.EventType],
		OccurredAt:    env.OccurredAt,
		ProjectedAt:   time.Now().UTC(),
	}
	if ref, ok := payload["reference"].(string); ok {
		e.Reference = ref
	}
	if amount, ok := payload["amount"].(float64); ok {
		e.Amount = int64(amount)
	}
	return e, nil
}
