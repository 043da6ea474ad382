package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const referenceConstraint = "wallet_transactions_reference_key"

const transactionColumns = `id, wallet_id, owner_id, transaction_type, amount, balance_before, balance_after,
		status, reference, external_reference, description, metadata, job_id, escrow_id,
		recipient_wallet_id, fee_amount, created_at, updated_at, completed_at`

const (
	insertTransactionQuery = `
		INSERT INTO wallet_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	getTransactionByReferenceQuery = `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE reference = $1`
	sumOutgoingSinceQuery          = `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND transaction_type = $2 AND status = $3
			AND balance_after < balance_before AND created_at >= $4
	`
	countTransactionsByStatusQuery = `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1 AND status = $2`
)

// TransactionRepository implements the wallet.TransactionRepository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.TransactionRepository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) wallet.TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts an immutable transaction record. A reused reference fails with wallet.ErrDuplicateReference.
func (r *TransactionRepository) Create(ctx context.Context, t *wallet.Transaction) error {
	_, err := r.querier.Exec(ctx, insertTransactionQuery,
		t.ID,
		t.WalletID,
		t.OwnerID,
		t.Type,
		t.Amount,
		t.BalanceBefore,
		t.BalanceAfter,
		t.Status,
		t.Reference,
		t.ExternalReference,
		t.Description,
		t.Metadata,
		t.JobID,
		t.EscrowID,
		t.RecipientWalletID,
		t.FeeAmount,
		t.CreatedAt,
		t.UpdatedAt,
		t.CompletedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, referenceConstraint) {
			return wallet.ErrDuplicateReference{Reference: t.Reference}
		}
		r.logger.Error("Failed to create transaction",
			"reference", t.Reference,
			"wallet_id", t.WalletID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByReference retrieves a transaction by its unique reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*wallet.Transaction, error) {
	t, err := scanTransaction(r.querier.QueryRow(ctx, getTransactionByReferenceQuery, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrTransactionNotFound(reference)
		}
		r.logger.Error("Failed to get transaction", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListByWallet returns one page of the wallet's history, newest first, with the total match count
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	page = page.Normalize()
	where, args := buildTransactionFilter(walletID, filter)

	var total int64
	if err := r.querier.QueryRow(ctx, countTransactionsQuery(where), args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "wallet_id", walletID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := r.querier.Query(ctx, listTransactionsQuery(where, len(args)), append(args, page.Limit, page.Offset)...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "wallet_id", walletID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*wallet.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction row", "error", err)
			return nil, 0, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating transaction rows", "error", err)
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, total, nil
}

// SumOutgoingSince totals completed balance-decreasing records of txType created at or after since
func (r *TransactionRepository) SumOutgoingSince(ctx context.Context, walletID uuid.UUID, txType shared.TransactionType, since time.Time) (int64, error) {
	var sum int64
	err := r.querier.QueryRow(ctx, sumOutgoingSinceQuery, walletID, txType, shared.TransactionStatusCompleted, since).Scan(&sum)
	if err != nil {
		r.logger.Error("Failed to sum outgoing transactions",
			"wallet_id", walletID.String(),
			"type", txType,
			"error", err,
		)
		return 0, fmt.Errorf("failed to sum outgoing transactions: %w", err)
	}
	return sum, nil
}

// CountByStatus counts the wallet's transactions in status
func (r *TransactionRepository) CountByStatus(ctx context.Context, walletID uuid.UUID, status shared.TransactionStatus) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, countTransactionsByStatusQuery, walletID, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions by status", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions by status: %w", err)
	}
	return count, nil
}

// buildTransactionFilter renders the WHERE clause and its positional args
func buildTransactionFilter(walletID uuid.UUID, filter wallet.TransactionFilter) (string, []interface{}) {
	conds := []string{"wallet_id = $1"}
	args := []interface{}{walletID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != nil {
		add("transaction_type = $%d", *filter.Type)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.JobID != nil {
		add("job_id = $%d", *filter.JobID)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	return strings.Join(conds, " AND "), args
}

func countTransactionsQuery(where string) string {
	return `SELECT COUNT(*) FROM wallet_transactions WHERE ` + where
}

func listTransactionsQuery(where string, argCount int) string {
	return fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argCount+1, argCount+2)
}

func scanTransaction(row pgx.Row) (*wallet.Transaction, error) {
	var t wallet.Transaction
	err := row.Scan(
		&t.ID,
		&t.WalletID,
		&t.OwnerID,
		&t.Type,
		&t.Amount,
		&t.BalanceBefore,
		&t.BalanceAfter,
		&t.Status,
		&t.Reference,
		&t.ExternalReference,
		&t.Description,
		&t.Metadata,
		&t.JobID,
		&t.EscrowID,
		&t.RecipientWalletID,
		&t.FeeAmount,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
