package wallet_ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/google/uuid"
)

// CalculateFee looks up the matching fee tier for the type and amount. No tier means no fee.
func (l *Ledger) CalculateFee(ctx context.Context, txType shared.TransactionType, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, wallet.ErrInvalidAmount
	}
	tier, err := l.rules.FindFeeTier(ctx, txType, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to find fee tier for %s: %w", txType, err)
	}
	if tier == nil {
		return 0, nil
	}
	return tier.Apply(amount), nil
}

// CheckLimits evaluates amount against the owner's per-transaction, daily and monthly caps
func (l *Ledger) CheckLimits(ctx context.Context, ownerID uuid.UUID, txType shared.TransactionType, amount int64) error {
	if amount <= 0 {
		return wallet.ErrInvalidAmount
	}
	w, err := l.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	return l.checkLimits(ctx, l.txns, w, txType, amount)
}

// checkLimits runs against txns so callers holding the wallet lock see their own transaction's writes
func (l *Ledger) checkLimits(ctx context.Context, txns wallet.TransactionRepository, w *wallet.Wallet, txType shared.TransactionType, amount int64) error {
	rule, err := l.rules.FindLimitRule(ctx, w.Tier, txType)
	if err != nil {
		return fmt.Errorf("failed to find limit rule for %s/%s: %w", w.Tier, txType, err)
	}
	if rule == nil {
		return nil
	}

	dayStart, monthStart := windowStarts(l.now())

	spentToday, err := txns.SumOutgoingSince(ctx, w.ID, txType, dayStart)
	if err != nil {
		return fmt.Errorf("failed to sum daily %s for wallet %s: %w", txType, w.ID, err)
	}
	spentThisMonth, err := txns.SumOutgoingSince(ctx, w.ID, txType, monthStart)
	if err != nil {
		return fmt.Errorf("failed to sum monthly %s for wallet %s: %w", txType, w.ID, err)
	}

	return rule.Check(amount, spentToday, spentThisMonth)
}

// windowStarts returns UTC midnight and the first of the UTC month for now
func windowStarts(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return day, month
}
