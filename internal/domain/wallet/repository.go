package wallet

import (
	"context"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines wallet persistence operations
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// LockByOwner acquires a row lock on the owner's wallet for the rest of the transaction
	LockByOwner(ctx context.Context, ownerID uuid.UUID) (*Wallet, error)
	UpdateBalances(ctx context.Context, w *Wallet) error
	WithTx(tx pgx.Tx) Repository
}

// TransactionRepository stores the immutable transaction history
type TransactionRepository interface {
	// Create fails with ErrDuplicateReference when the reference already exists
	Create(ctx context.Context, t *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, filter TransactionFilter, page Pagination) ([]*Transaction, int64, error)

	// SumOutgoingSince totals completed debits of txType on the wallet created at or after since
	SumOutgoingSince(ctx context.Context, walletID uuid.UUID, txType shared.TransactionType, since time.Time) (int64, error)
	CountByStatus(ctx context.Context, walletID uuid.UUID, status shared.TransactionStatus) (int64, error)
	WithTx(tx pgx.Tx) TransactionRepository
}

// HoldRepository stores reservations against wallet balances
type HoldRepository interface {
	Create(ctx context.Context, h *Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)

	// LockByID re-reads the hold under a row lock; call it after locking the owning wallet
	LockByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	UpdateStatus(ctx context.Context, h *Hold) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*Hold, error)
	CountActive(ctx context.Context, walletID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) HoldRepository
}

// RuleRepository reads fee tiers and limit rules. A nil result with nil error means no rule applies.
type RuleRepository interface {
	FindFeeTier(ctx context.Context, txType shared.TransactionType, amount int64) (*FeeTier, error)
	FindLimitRule(ctx context.Context, tier string, txType shared.TransactionType) (*LimitRule, error)
}
