// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a pgx.Tx with WithTx so engines compose
// several writes into one atomic unit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, owner_id, balance, available_balance, total_deposits, total_withdrawals,
		currency, tier, status, created_at, updated_at, last_activity_at`

const (
	insertWalletQuery = `
		INSERT INTO wallets (id, owner_id, balance, available_balance, total_deposits, total_withdrawals,
			currency, tier, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	getWalletByOwnerQuery = `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1`
	getWalletByIDQuery    = `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	lockWalletQuery       = `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 FOR UPDATE`
	updateBalancesQuery   = `
		UPDATE wallets
		SET balance = $1, available_balance = $2, total_deposits = $3, total_withdrawals = $4,
			updated_at = $5, last_activity_at = $6
		WHERE id = $7
	`
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet. An owner can hold only one wallet.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	_, err := r.querier.Exec(ctx, insertWalletQuery,
		w.ID,
		w.OwnerID,
		w.Balance,
		w.AvailableBalance,
		w.TotalDeposits,
		w.TotalWithdrawals,
		w.Currency,
		w.Tier,
		w.Status,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, "") {
			return wallet.ErrDuplicateWallet{OwnerID: w.OwnerID}
		}
		r.logger.Error("Failed to create wallet", "owner_id", w.OwnerID.String(), "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByOwner retrieves the owner's wallet without locking it
func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*wallet.Wallet, error) {
	w, err := scanWallet(r.querier.QueryRow(ctx, getWalletByOwnerQuery, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound(ownerID)
		}
		r.logger.Error("Failed to get wallet", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// GetByID retrieves a wallet by its own id
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	w, err := scanWallet(r.querier.QueryRow(ctx, getWalletByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound(id)
		}
		r.logger.Error("Failed to get wallet by id", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// LockByOwner obtains a pessimistic lock on the owner's wallet and returns its current state.
// It must run inside a transaction.
func (r *WalletRepository) LockByOwner(ctx context.Context, ownerID uuid.UUID) (*wallet.Wallet, error) {
	w, err := scanWallet(r.querier.QueryRow(ctx, lockWalletQuery, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound(ownerID)
		}
		r.logger.Error("Failed to lock wallet for update", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}
	return w, nil
}

// UpdateBalances persists the balance fields of a locked wallet
func (r *WalletRepository) UpdateBalances(ctx context.Context, w *wallet.Wallet) error {
	result, err := r.querier.Exec(ctx, updateBalancesQuery,
		w.Balance,
		w.AvailableBalance,
		w.TotalDeposits,
		w.TotalWithdrawals,
		w.UpdatedAt,
		w.LastActivityAt,
		w.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update wallet balances", "id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound(w.OwnerID)
	}

	return nil
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Balance,
		&w.AvailableBalance,
		&w.TotalDeposits,
		&w.TotalWithdrawals,
		&w.Currency,
		&w.Tier,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
