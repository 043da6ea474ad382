package wallet_ledger

import (
	"context"
	"fmt"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/google/uuid"
)

// FundingRequest moves money between the owner's wallet and the outside world
type FundingRequest struct {
	OwnerID     uuid.UUID
	Amount      int64
	Reference   string
	Description string
}

func (r FundingRequest) validate() error {
	if r.OwnerID == uuid.Nil {
		return wallet.ErrEmptyOwner
	}
	if r.Amount <= 0 {
		return wallet.ErrInvalidAmount
	}
	if r.Reference == "" {
		return wallet.ErrEmptyReference
	}
	return nil
}

// FundWallet collects funds through the payment provider and credits them as a deposit.
// The provider is called before the ledger transaction; a replayed reference never reaches it.
func (l *Ledger) FundWallet(ctx context.Context, req FundingRequest) (*wallet.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := l.ensureUnused(ctx, req.Reference); err != nil {
		return nil, err
	}
	w, err := l.wallets.GetByOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	receipt, err := l.payments.Collect(ctx, payment.CollectRequest{
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Currency:  w.Currency,
		Reference: req.Reference,
	})
	if err != nil {
		l.logger.Error("Payment collection failed", "owner_id", req.OwnerID.String(), "reference", req.Reference, "error", err)
		return nil, fmt.Errorf("failed to collect funds for %s: %w", req.Reference, err)
	}

	external := receipt.ExternalReference
	return l.Credit(ctx, EntryRequest{
		OwnerID:           req.OwnerID,
		Amount:            req.Amount,
		Type:              shared.TransactionTypeDeposit,
		Description:       req.Description,
		Reference:         req.Reference,
		ExternalReference: &external,
		Metadata:          map[string]any{"provider_status": receipt.Status},
	})
}

// Withdraw debits the amount plus the withdrawal fee, then pays the amount out through the
// provider after the debit commits. A failed payout is reversed with a refund credit.
func (l *Ledger) Withdraw(ctx context.Context, req FundingRequest) (*wallet.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	fee, err := l.CalculateFee(ctx, shared.TransactionTypeWithdrawal, req.Amount)
	if err != nil {
		return nil, err
	}

	txn, err := l.Debit(ctx, EntryRequest{
		OwnerID:     req.OwnerID,
		Amount:      req.Amount + fee,
		Type:        shared.TransactionTypeWithdrawal,
		Description: req.Description,
		Reference:   req.Reference,
		Fee:         fee,
	})
	if err != nil {
		return nil, err
	}

	w, err := l.wallets.GetByID(ctx, txn.WalletID)
	if err != nil {
		return nil, err
	}
	receipt, payoutErr := l.payments.Payout(ctx, payment.PayoutRequest{
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Currency:  w.Currency,
		Reference: req.Reference,
	})
	if payoutErr == nil {
		l.logger.Info("Payout sent", "owner_id", req.OwnerID.String(), "reference", req.Reference,
			"external_reference", receipt.ExternalReference)
		return txn, nil
	}

	l.logger.Warn("Payout failed, reversing withdrawal",
		"owner_id", req.OwnerID.String(),
		"reference", req.Reference,
		"amount", txn.Amount,
		"error", payoutErr,
	)
	_, reverseErr := l.post(ctx, EntryRequest{
		OwnerID:     req.OwnerID,
		Amount:      txn.Amount,
		Type:        shared.TransactionTypeRefund,
		Description: "payout reversed",
		Reference:   refundReferencePrefix + req.Reference,
		Metadata:    map[string]any{"original_reference": req.Reference, "payout_error": payoutErr.Error()},
	}, moveCredit, outbox.EventPayoutReversed)
	if reverseErr != nil {
		l.logger.Error("Payout reversal failed, manual reconciliation required",
			"owner_id", req.OwnerID.String(),
			"reference", req.Reference,
			"amount", txn.Amount,
			"error", reverseErr,
		)
		return nil, fmt.Errorf("payout failed for %s: %w (reversal failed: %v)", req.Reference, payoutErr, reverseErr)
	}
	return nil, fmt.Errorf("payout failed for %s: %w", req.Reference, payoutErr)
}
