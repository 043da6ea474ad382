package wallet

import (
	"fmt"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = shared.ValidationError{Field: "amount", Reason: "must be positive"}
	ErrEmptyOwner            = shared.ValidationError{Field: "owner_id", Reason: "cannot be empty"}
	ErrInvalidCurrencyFormat = shared.ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	ErrEmptyReference        = shared.ValidationError{Field: "reference", Reason: "cannot be empty"}
	ErrSelfTransfer          = shared.ValidationError{Field: "recipient", Reason: "must differ from sender"}
)

// ErrWalletNotFound returns the not-found error for an owner's wallet
func ErrWalletNotFound(ownerID uuid.UUID) error {
	return shared.NotFoundError{Resource: "wallet", ID: ownerID.String()}
}

// ErrTransactionNotFound returns the not-found error for a reference
func ErrTransactionNotFound(reference string) error {
	return shared.NotFoundError{Resource: "transaction", ID: reference}
}

// ErrHoldNotFound returns the not-found error for a hold
func ErrHoldNotFound(holdID uuid.UUID) error {
	return shared.NotFoundError{Resource: "hold", ID: holdID.String()}
}

// ErrInsufficientFunds indicates a debit larger than the available balance
type ErrInsufficientFunds struct {
	OwnerID   uuid.UUID
	Requested int64
	Available int64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds for %s: requested %d, available %d", e.OwnerID, e.Requested, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	return target == shared.ErrInsufficientFunds
}

// ErrInsufficientAvailableBalance indicates a hold larger than the available balance
type ErrInsufficientAvailableBalance struct {
	OwnerID   uuid.UUID
	Requested int64
	Available int64
}

func (e ErrInsufficientAvailableBalance) Error() string {
	return fmt.Sprintf("insufficient available balance for %s: requested %d, available %d", e.OwnerID, e.Requested, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientAvailableBalance
func (e ErrInsufficientAvailableBalance) Is(target error) bool {
	return target == shared.ErrInsufficientAvailableBalance
}

// ErrHoldExceedsReserved indicates a hold operation larger than what the wallet has reserved
type ErrHoldExceedsReserved struct {
	WalletID uuid.UUID
	Amount   int64
	Held     int64
}

func (e ErrHoldExceedsReserved) Error() string {
	return fmt.Sprintf("hold amount %d exceeds reserved %d on wallet %s", e.Amount, e.Held, e.WalletID)
}

// Is implements the errors.Is interface for ErrHoldExceedsReserved
func (e ErrHoldExceedsReserved) Is(target error) bool {
	return target == shared.ErrValidation
}

// ErrDuplicateReference indicates a reference that was already applied.
// Existing carries the stored transaction so replays can be answered.
type ErrDuplicateReference struct {
	Reference string
	Existing  *Transaction
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate transaction reference: " + e.Reference
}

// Is implements the errors.Is interface for ErrDuplicateReference
func (e ErrDuplicateReference) Is(target error) bool {
	if target == shared.ErrDuplicateReference {
		return true
	}
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}

// ErrLimitExceeded indicates a transaction-limit rule rejected the amount
type ErrLimitExceeded struct {
	Window    string
	Limit     int64
	Attempted int64
}

func (e ErrLimitExceeded) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded: %d", e.Window, e.Limit, e.Attempted)
}

// Is implements the errors.Is interface for ErrLimitExceeded
func (e ErrLimitExceeded) Is(target error) bool {
	return target == shared.ErrValidation
}

// ErrHoldNotActive indicates a release or capture of a hold that is no longer active
type ErrHoldNotActive struct {
	HoldID uuid.UUID
	Status HoldStatus
}

func (e ErrHoldNotActive) Error() string {
	return fmt.Sprintf("hold %s is not active: %s", e.HoldID, e.Status)
}

// Is implements the errors.Is interface for ErrHoldNotActive
func (e ErrHoldNotActive) Is(target error) bool {
	return target == shared.ErrValidation
}

// ErrWalletInactive indicates money movement on a wallet that is not active
type ErrWalletInactive struct {
	WalletID uuid.UUID
	Status   Status
}

func (e ErrWalletInactive) Error() string {
	return fmt.Sprintf("wallet %s is %s", e.WalletID, e.Status)
}

// Is implements the errors.Is interface for ErrWalletInactive
func (e ErrWalletInactive) Is(target error) bool {
	return target == shared.ErrValidation
}

// ErrDuplicateWallet indicates the owner already has a wallet
type ErrDuplicateWallet struct {
	OwnerID uuid.UUID
}

func (e ErrDuplicateWallet) Error() string {
	return "wallet already exists for owner: " + e.OwnerID.String()
}

// Is implements the errors.Is interface for ErrDuplicateWallet
func (e ErrDuplicateWallet) Is(target error) bool {
	return target == shared.ErrValidation
}
