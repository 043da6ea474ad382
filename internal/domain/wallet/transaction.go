package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ReferencePrefix prefixes every generated reference
const ReferencePrefix = "VRN_"

// Transaction is an immutable record of one balance change
type Transaction struct {
	ID                uuid.UUID                `json:"id"`
	WalletID          uuid.UUID                `json:"wallet_id"`
	OwnerID           uuid.UUID                `json:"owner_id"`
	Type              shared.TransactionType   `json:"type"`
	Amount            int64                    `json:"amount"`
	BalanceBefore     int64                    `json:"balance_before"`
	BalanceAfter      int64                    `json:"balance_after"`
	Status            shared.TransactionStatus `json:"status"`
	Reference         string                   `json:"reference"`
	ExternalReference *string                  `json:"external_reference,omitempty"`
	Description       string                   `json:"description"`
	Metadata          json.RawMessage          `json:"metadata,omitempty"`
	JobID             *uuid.UUID               `json:"job_id,omitempty"`
	EscrowID          *uuid.UUID               `json:"escrow_id,omitempty"`
	RecipientWalletID *uuid.UUID               `json:"recipient_wallet_id,omitempty"`
	FeeAmount         int64                    `json:"fee_amount"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
	CompletedAt       *time.Time               `json:"completed_at,omitempty"`
}

// IsCredit reports whether the record increased the balance
func (t *Transaction) IsCredit() bool {
	return t.BalanceAfter > t.BalanceBefore
}

// GenerateReference returns a new VRN_ reference with 16 upper-case hex characters
func GenerateReference() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		copy(buf, id[:8])
	}
	return ReferencePrefix + strings.ToUpper(hex.EncodeToString(buf))
}

// TransactionFilter narrows transaction history queries. Nil fields are ignored.
type TransactionFilter struct {
	Type   *shared.TransactionType
	Status *shared.TransactionStatus
	JobID  *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// Pagination bounds a list query
type Pagination struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
