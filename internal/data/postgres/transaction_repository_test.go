package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionColumnNames = []string{"id", "wallet_id", "owner_id", "transaction_type", "amount", "balance_before",
	"balance_after", "status", "reference", "external_reference", "description", "metadata", "job_id", "escrow_id",
	"recipient_wallet_id", "fee_amount", "created_at", "updated_at", "completed_at"}

func sampleTransaction() *wallet.Transaction {
	now := time.Now().UTC()
	jobID := uuid.New()
	return &wallet.Transaction{
		ID:            uuid.New(),
		WalletID:      uuid.New(),
		OwnerID:       uuid.New(),
		Type:          shared.TransactionTypeJobPayment,
		Amount:        50000,
		BalanceBefore: 200000,
		BalanceAfter:  150000,
		Status:        shared.TransactionStatusCompleted,
		Reference:     "ESC-1-R1-CAP",
		Description:   "milestone payout",
		JobID:         &jobID,
		CreatedAt:     now,
		UpdatedAt:     now,
		CompletedAt:   &now,
	}
}

func addTransactionRow(rows *pgxmock.Rows, t *wallet.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.WalletID, t.OwnerID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Status, t.Reference, t.ExternalReference, t.Description, []byte(t.Metadata), t.JobID, t.EscrowID,
		t.RecipientWalletID, t.FeeAmount, t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	)
}

func transactionArgs(t *wallet.Transaction) []interface{} {
	return []interface{}{
		t.ID, t.WalletID, t.OwnerID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Status, t.Reference, t.ExternalReference, t.Description, t.Metadata, t.JobID, t.EscrowID,
		t.RecipientWalletID, t.FeeAmount, t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	}
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := sampleTransaction()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WithArgs(transactionArgs(txn)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, txn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WithArgs(transactionArgs(txn)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: referenceConstraint})

		err := repo.Create(ctx, txn)
		assert.ErrorIs(t, err, shared.ErrDuplicateReference)
		var dup wallet.ErrDuplicateReference
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, txn.Reference, dup.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other unique violation", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WithArgs(transactionArgs(txn)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "wallet_transactions_pkey"})

		err := repo.Create(ctx, txn)
		assert.NotErrorIs(t, err, shared.ErrDuplicateReference)
		assert.ErrorContains(t, err, "failed to create transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := sampleTransaction()

	t.Run("success", func(t *testing.T) {
		rows := addTransactionRow(pgxmock.NewRows(transactionColumnNames), txn)
		mock.ExpectQuery(regexp.QuoteMeta(getTransactionByReferenceQuery)).WithArgs(txn.Reference).WillReturnRows(rows)

		got, err := repo.GetByReference(ctx, txn.Reference)
		require.NoError(t, err)
		assert.Equal(t, txn.ID, got.ID)
		assert.Equal(t, txn.Amount, got.Amount)
		assert.False(t, got.IsCredit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(getTransactionByReferenceQuery)).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByReference(ctx, "missing")
		assert.ErrorIs(t, err, wallet.ErrTransactionNotFound("missing"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildTransactionFilter(t *testing.T) {
	walletID := uuid.New()
	txType := shared.TransactionTypeDeposit
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildTransactionFilter(walletID, wallet.TransactionFilter{})
	assert.Equal(t, "wallet_id = $1", where)
	assert.Equal(t, []interface{}{walletID}, args)

	where, args = buildTransactionFilter(walletID, wallet.TransactionFilter{Type: &txType, From: &from})
	assert.Equal(t, "wallet_id = $1 AND transaction_type = $2 AND created_at >= $3", where)
	assert.Equal(t, []interface{}{walletID, txType, from}, args)
	assert.Contains(t, listTransactionsQuery(where, len(args)), "LIMIT $4 OFFSET $5")
}

func TestTransactionRepository_ListByWallet(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := sampleTransaction()
	status := shared.TransactionStatusCompleted
	filter := wallet.TransactionFilter{Status: &status}
	where, _ := buildTransactionFilter(txn.WalletID, filter)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(countTransactionsQuery(where))).
			WithArgs(txn.WalletID, status).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(41)))
		mock.ExpectQuery(regexp.QuoteMeta(listTransactionsQuery(where, 2))).
			WithArgs(txn.WalletID, status, 20, 0).
			WillReturnRows(addTransactionRow(pgxmock.NewRows(transactionColumnNames), txn))

		got, total, err := repo.ListByWallet(ctx, txn.WalletID, filter, wallet.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, int64(41), total)
		require.Len(t, got, 1)
		assert.Equal(t, txn.Reference, got[0].Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(countTransactionsQuery(where))).
			WithArgs(txn.WalletID, status).
			WillReturnError(errors.New("boom"))

		_, _, err := repo.ListByWallet(ctx, txn.WalletID, filter, wallet.Pagination{})
		assert.ErrorContains(t, err, "failed to count transactions")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_SumOutgoingSince(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	walletID := uuid.New()
	since := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(sumOutgoingSinceQuery)).
		WithArgs(walletID, shared.TransactionTypeWithdrawal, shared.TransactionStatusCompleted, since).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(750000)))

	sum, err := repo.SumOutgoingSince(ctx, walletID, shared.TransactionTypeWithdrawal, since)
	require.NoError(t, err)
	assert.Equal(t, int64(750000), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	walletID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(countTransactionsByStatusQuery)).
		WithArgs(walletID, shared.TransactionStatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountByStatus(ctx, walletID, shared.TransactionStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
