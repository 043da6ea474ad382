package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxColumnNames = []string{"id", "event_id", "event_type", "aggregate_type", "aggregate_id", "payload",
	"status", "attempts", "created_at", "last_attempt_at"}

func sampleMessage(t *testing.T) *outbox.Message {
	msg, err := outbox.NewMessage(outbox.EventCredited, outbox.AggregateWallet, uuid.New(),
		map[string]any{"reference": "VRN_0011223344556677", "amount": 5000})
	require.NoError(t, err)
	return msg
}

func TestOutboxRepository_WithTx(t *testing.T) {
	repo := &OutboxRepository{
		querier: nil,
		logger:  newTestLogger(),
	}

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	assert.NotNil(t, txRepo)
	assert.IsType(t, &OutboxRepository{}, txRepo)

	outboxRepo, ok := txRepo.(*OutboxRepository)
	assert.True(t, ok)
	assert.Equal(t, mockTx, outboxRepo.querier)
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := sampleMessage(t)
	args := []interface{}{msg.EventID, msg.EventType, msg.AggregateType, msg.AggregateID, msg.Payload,
		msg.Status, msg.Attempts, msg.CreatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(insertOutboxQuery)).WithArgs(args...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(42), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate event", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(insertOutboxQuery)).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: outboxEventIDConstraint})

		err := repo.Create(ctx, msg)
		var dup outbox.ErrDuplicateMessage
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, msg.EventID, dup.EventID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := sampleMessage(t)
	msg.ID = 7

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(getPendingOutboxQuery)).
			WithArgs(shared.OutboxStatusPending, 10).
			WillReturnRows(pgxmock.NewRows(outboxColumnNames).AddRow(
				msg.ID, msg.EventID, msg.EventType, msg.AggregateType, msg.AggregateID, []byte(msg.Payload),
				msg.Status, msg.Attempts, msg.CreatedAt, msg.LastAttemptAt))

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, msg.EventID, messages[0].EventID)
		assert.JSONEq(t, string(msg.Payload), string(messages[0].Payload))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(getPendingOutboxQuery)).
			WithArgs(shared.OutboxStatusPending, 10).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetPending(ctx, 10)
		assert.ErrorContains(t, err, "failed to get pending outbox messages")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(updateOutboxStatusQuery)).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 1, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(updateOutboxStatusQuery)).
			WithArgs(shared.OutboxStatusFailedToPublish, pgxmock.AnyArg(), int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 2, shared.OutboxStatusFailedToPublish)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttemptsAndDelete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectExec(regexp.QuoteMeta(incrementOutboxAttemptsQuery)).
		WithArgs(pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteOutboxQuery)).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.IncrementAttempts(ctx, 3))
	assert.ErrorIs(t, repo.Delete(ctx, 3), outbox.ErrMessageNotFound{ID: 3})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_GetByEventID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	eventID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(getOutboxByEventIDQuery)).WithArgs(eventID).WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByEventID(ctx, eventID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
