package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Status defines wallet lifecycle states
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusFrozen    Status = "frozen"
	StatusClosed    Status = "closed"
)

// DefaultTier is the limit tier assigned to new wallets
const DefaultTier = "basic"

// Wallet holds one owner's funds. Amounts are integer minor units.
// AvailableBalance never exceeds Balance; the difference is the sum of active holds.
type Wallet struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	Balance          int64      `json:"balance"`
	AvailableBalance int64      `json:"available_balance"`
	TotalDeposits    int64      `json:"total_deposits"`
	TotalWithdrawals int64      `json:"total_withdrawals"`
	Currency         string     `json:"currency"`
	Tier             string     `json:"tier"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastActivityAt   *time.Time `json:"last_activity_at,omitempty"`
}

// NewWallet creates an empty active wallet for the owner
func NewWallet(ownerID uuid.UUID, currency string) (*Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwner
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Currency:  currency,
		Tier:      DefaultTier,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Held returns the amount reserved by active holds
func (w *Wallet) Held() int64 {
	return w.Balance - w.AvailableBalance
}

// CanTransact reports whether funds may move in or out of the wallet
func (w *Wallet) CanTransact() error {
	if w.Status != StatusActive {
		return ErrWalletInactive{WalletID: w.ID, Status: w.Status}
	}
	return nil
}

// Credit adds amount to both balance fields
func (w *Wallet) Credit(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	w.AvailableBalance += amount
	w.touch(at)
	return nil
}

// Debit removes amount from both balance fields
func (w *Wallet) Debit(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.AvailableBalance < amount {
		return ErrInsufficientFunds{OwnerID: w.OwnerID, Requested: amount, Available: w.AvailableBalance}
	}
	w.Balance -= amount
	w.AvailableBalance -= amount
	w.touch(at)
	return nil
}

// Reserve moves amount from available balance into a hold
func (w *Wallet) Reserve(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.AvailableBalance < amount {
		return ErrInsufficientAvailableBalance{OwnerID: w.OwnerID, Requested: amount, Available: w.AvailableBalance}
	}
	w.AvailableBalance -= amount
	w.touch(at)
	return nil
}

// Unreserve returns a held amount to available balance
func (w *Wallet) Unreserve(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Held() < amount {
		return ErrHoldExceedsReserved{WalletID: w.ID, Amount: amount, Held: w.Held()}
	}
	w.AvailableBalance += amount
	w.touch(at)
	return nil
}

// Consume removes a held amount from the balance, leaving available balance untouched
func (w *Wallet) Consume(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Held() < amount {
		return ErrHoldExceedsReserved{WalletID: w.ID, Amount: amount, Held: w.Held()}
	}
	w.Balance -= amount
	w.touch(at)
	return nil
}

func (w *Wallet) touch(at time.Time) {
	w.UpdatedAt = at
	w.LastActivityAt = &at
}

// Balance is the read model returned by balance queries
type Balance struct {
	OwnerID          uuid.UUID `json:"owner_id"`
	Balance          int64     `json:"balance"`
	AvailableBalance int64     `json:"available_balance"`
	Held             int64     `json:"held"`
	Currency         string    `json:"currency"`
}

// Summary aggregates wallet figures for dashboards
type Summary struct {
	Balance
	TotalDeposits    int64 `json:"total_deposits"`
	TotalWithdrawals int64 `json:"total_withdrawals"`
	PendingCount     int64 `json:"pending_transactions"`
	ActiveHolds      int64 `json:"active_holds"`
}
