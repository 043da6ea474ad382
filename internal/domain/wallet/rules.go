package wallet

import (
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeType selects how a fee tier is applied
type FeeType string

const (
	FeeTypeFixed      FeeType = "fixed"
	FeeTypePercentage FeeType = "percentage"
)

// FeeTier is a configured fee for a transaction type and amount band.
// For percentage tiers Value is in basis points.
type FeeTier struct {
	ID              int64                  `json:"id"`
	TransactionType shared.TransactionType `json:"transaction_type"`
	MinAmount       int64                  `json:"min_amount"`
	MaxAmount       int64                  `json:"max_amount"`
	FeeType         FeeType                `json:"fee_type"`
	Value           int64                  `json:"fee_value"`
}

var basisPoints = decimal.NewFromInt(10000)

// Apply computes the fee for amount, rounding percentage fees half-up to the minor unit
func (t *FeeTier) Apply(amount int64) int64 {
	switch t.FeeType {
	case FeeTypeFixed:
		return t.Value
	case FeeTypePercentage:
		return decimal.NewFromInt(amount).
			Mul(decimal.NewFromInt(t.Value)).
			Div(basisPoints).
			Round(0).
			IntPart()
	default:
		return 0
	}
}

// LimitRule caps money movement for a tier and transaction type. Zero means no cap.
type LimitRule struct {
	Tier                string                 `json:"tier"`
	TransactionType     shared.TransactionType `json:"transaction_type"`
	PerTransactionLimit int64                  `json:"per_transaction_limit"`
	DailyLimit          int64                  `json:"daily_limit"`
	MonthlyLimit        int64                  `json:"monthly_limit"`
}

// Check evaluates amount against the rule given what was already spent
func (r *LimitRule) Check(amount, spentToday, spentThisMonth int64) error {
	if r.PerTransactionLimit > 0 && amount > r.PerTransactionLimit {
		return ErrLimitExceeded{Window: "per_transaction", Limit: r.PerTransactionLimit, Attempted: amount}
	}
	if r.DailyLimit > 0 && spentToday+amount > r.DailyLimit {
		return ErrLimitExceeded{Window: "daily", Limit: r.DailyLimit, Attempted: spentToday + amount}
	}
	if r.MonthlyLimit > 0 && spentThisMonth+amount > r.MonthlyLimit {
		return ErrLimitExceeded{Window: "monthly", Limit: r.MonthlyLimit, Attempted: spentThisMonth + amount}
	}
	return nil
}
