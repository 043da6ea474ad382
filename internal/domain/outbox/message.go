package outbox

import (
	"encoding/json"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate types
const (
	AggregateWallet  = "wallet"
	AggregateEscrow  = "escrow"
	AggregateDispute = "dispute"
)

// Event types published through the outbox
const (
	EventWalletCreated  = "wallet.created"
	EventCredited       = "ledger.credited"
	EventDebited        = "ledger.debited"
	EventTransferred    = "ledger.transferred"
	EventHoldCreated    = "ledger.hold_created"
	EventHoldReleased   = "ledger.hold_released"
	EventHoldCaptured   = "ledger.hold_captured"
	EventHoldExpired    = "ledger.hold_expired"
	EventRefunded       = "ledger.refunded"
	EventPayoutReversed = "ledger.payout_reversed"

	EventEscrowCreated           = "escrow.created"
	EventEscrowFunded            = "escrow.funded"
	EventEscrowPartiallyReleased = "escrow.partially_released"
	EventEscrowCompleted         = "escrow.completed"
	EventEscrowDisputed          = "escrow.disputed"
	EventEscrowRefunded          = "escrow.refunded"
	EventEscrowCancelled         = "escrow.cancelled"
	EventEscrowCompensated       = "escrow.compensated"

	EventDisputeCreated   = "dispute.created"
	EventDisputeAssigned  = "dispute.assigned"
	EventDisputeEscalated = "dispute.escalated"
	EventDisputeConfirmed = "dispute.confirmed"
	EventDisputeResolved  = "dispute.resolved"
)

// Message stores a domain event for reliable publishing
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     string              `json:"event_type"`
	AggregateType string              `json:"aggregate_type"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// Envelope is the wire form of an event on the events topic
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewMessage(eventType, aggregateType string, aggregateID uuid.UUID, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       raw,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Envelope builds the wire form of the message
func (m *Message) Envelope() Envelope {
	return Envelope{
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		Payload:       m.Payload,
		OccurredAt:    m.CreatedAt,
	}
}

// DecodePayload unmarshals the payload into v
func (e Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
