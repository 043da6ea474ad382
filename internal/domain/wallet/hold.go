package wallet

import (
	"time"

	"github.com/google/uuid"
)

// HoldStatus defines hold lifecycle states
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
)

// Hold reserves part of a wallet's balance pending release or consumption
type Hold struct {
	ID         uuid.UUID  `json:"id"`
	WalletID   uuid.UUID  `json:"wallet_id"`
	JobID      *uuid.UUID `json:"job_id,omitempty"`
	Amount     int64      `json:"amount"`
	Reason     string     `json:"reason"`
	Status     HoldStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// IsActive reports whether the hold still reserves funds
func (h *Hold) IsActive() bool {
	return h.Status == HoldStatusActive
}

// Close marks the hold as no longer reserving funds
func (h *Hold) Close(status HoldStatus, at time.Time) {
	h.Status = status
	h.ReleasedAt = &at
}
