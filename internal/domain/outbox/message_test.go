package outbox

import (
	"testing"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creditedPayload struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
}

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		walletID := uuid.New()
		payload := creditedPayload{OwnerID: uuid.New(), Amount: 1000, Reference: "VRN_0011223344556677"}

		beforeCreation := time.Now()
		msg, err := NewMessage(EventCredited, AggregateWallet, walletID, payload)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.NotEqual(t, uuid.Nil, msg.EventID)
		assert.Equal(t, EventCredited, msg.EventType)
		assert.Equal(t, AggregateWallet, msg.AggregateType)
		assert.Equal(t, walletID, msg.AggregateID)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		var decoded creditedPayload
		require.NoError(t, msg.Envelope().DecodePayload(&decoded))
		assert.Equal(t, payload, decoded)
	})

	t.Run("UnencodablePayload", func(t *testing.T) {
		_, err := NewMessage(EventCredited, AggregateWallet, uuid.New(), make(chan int))
		assert.Error(t, err)
	})
}

func TestMessage_StatusChanges(t *testing.T) {
	initialTime := time.Now().Add(-time.Hour)

	t.Run("IncrementAttempts", func(t *testing.T) {
		msg := &Message{Attempts: 1, LastAttemptAt: &initialTime}
		msg.IncrementAttempts()
		assert.Equal(t, 2, msg.Attempts)
		require.NotNil(t, msg.LastAttemptAt)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
	})

	t.Run("MarkAsProcessed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending, LastAttemptAt: &initialTime}
		msg.MarkAsProcessed()
		assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
	})

	t.Run("MarkAsFailed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending, LastAttemptAt: &initialTime}
		msg.MarkAsFailed()
		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
	})
}

func TestMessage_Envelope(t *testing.T) {
	msg, err := NewMessage(EventEscrowFunded, AggregateEscrow, uuid.New(), map[string]int64{"held_amount": 103000})
	require.NoError(t, err)

	env := msg.Envelope()
	assert.Equal(t, msg.EventID, env.EventID)
	assert.Equal(t, msg.EventType, env.EventType)
	assert.Equal(t, msg.AggregateID, env.AggregateID)
	assert.True(t, msg.CreatedAt.Equal(env.OccurredAt))
	assert.JSONEq(t, `{"held_amount":103000}`, string(env.Payload))
}
