// Package payment is the narrow boundary to the external payment gateway.
// The ledger calls it before a deposit transaction and after a payout commits;
// no database lock is held across these calls.
package payment

import (
	"context"
	"fmt"

	"github.com/escrow-ledger/internal/config"
	"github.com/google/uuid"
)

// Receipt is the gateway's answer to a collection or payout
type Receipt struct {
	ExternalReference string
	Status            string
}

// CollectRequest asks the gateway to pull funds into the owner's wallet
type CollectRequest struct {
	OwnerID   uuid.UUID
	Amount    int64
	Currency  string
	Reference string
}

// PayoutRequest asks the gateway to push funds out to the owner
type PayoutRequest struct {
	OwnerID   uuid.UUID
	Amount    int64
	Currency  string
	Reference string
}

// Provider connects the ledger to a payment gateway
type Provider interface {
	Collect(ctx context.Context, req CollectRequest) (Receipt, error)
	Payout(ctx context.Context, req PayoutRequest) (Receipt, error)
}

// StaticProvider approves every request with a synthetic reference.
// It stands in for a real gateway in development and tests.
type StaticProvider struct{}

// Collect approves the collection
func (StaticProvider) Collect(_ context.Context, _ CollectRequest) (Receipt, error) {
	return Receipt{ExternalReference: "PSP-" + uuid.NewString(), Status: "approved"}, nil
}

// Payout approves the payout
func (StaticProvider) Payout(_ context.Context, _ PayoutRequest) (Receipt, error) {
	return Receipt{ExternalReference: "PSP-" + uuid.NewString(), Status: "approved"}, nil
}

// NewProvider returns the provider named in configuration
func NewProvider(cfg *config.PaymentConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "static":
		return StaticProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Provider)
	}
}
