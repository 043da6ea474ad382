package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

func TestOutboxRecorder_Record(t *testing.T) {
	walletID := uuid.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("writes pending message", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(msg *outbox.Message) bool {
			var payload map[string]any
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				return false
			}
			return msg.Status == shared.OutboxStatusPending &&
				msg.EventType == outbox.EventCredited &&
				msg.AggregateID == walletID &&
				payload["reference"] == "VRN_0011223344556677"
		})).Return(nil)

		recorder := NewRecorder(repo, logger)
		err := recorder.Record(context.Background(), nil, outbox.EventCredited, outbox.AggregateWallet, walletID,
			map[string]any{"reference": "VRN_0011223344556677", "amount": 5000})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))

		recorder := NewRecorder(repo, logger)
		err := recorder.Record(context.Background(), nil, outbox.EventDebited, outbox.AggregateWallet, walletID, map[string]any{})

		assert.ErrorContains(t, err, "db error")
		assert.ErrorContains(t, err, outbox.EventDebited)
		repo.AssertExpectations(t)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		recorder := NewRecorder(repo, logger)

		err := recorder.Record(context.Background(), nil, outbox.EventDebited, outbox.AggregateWallet, walletID,
			map[string]any{"bad": make(chan int)})

		assert.ErrorContains(t, err, "failed to create outbox message payload")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
