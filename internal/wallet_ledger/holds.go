package wallet_ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldRequest reserves funds in the owner's wallet
type HoldRequest struct {
	OwnerID   uuid.UUID
	JobID     *uuid.UUID
	Amount    int64
	Reason    string
	ExpiresAt *time.Time
}

// CreateHold moves amount from available balance into a new active hold
func (l *Ledger) CreateHold(ctx context.Context, req HoldRequest) (*wallet.Hold, error) {
	if req.OwnerID == uuid.Nil {
		return nil, wallet.ErrEmptyOwner
	}
	if req.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	var hold *wallet.Hold
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := l.wallets.WithTx(tx).LockByOwner(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if err := w.CanTransact(); err != nil {
			return err
		}

		now := l.now()
		if err := w.Reserve(req.Amount, now); err != nil {
			return err
		}
		if err := l.wallets.WithTx(tx).UpdateBalances(ctx, w); err != nil {
			return err
		}

		hold = &wallet.Hold{
			ID:        uuid.New(),
			WalletID:  w.ID,
			JobID:     req.JobID,
			Amount:    req.Amount,
			Reason:    req.Reason,
			Status:    wallet.HoldStatusActive,
			CreatedAt: now,
			ExpiresAt: req.ExpiresAt,
		}
		if err := l.holds.WithTx(tx).Create(ctx, hold); err != nil {
			return err
		}
		return l.recordHold(ctx, tx, outbox.EventHoldCreated, hold, req.Amount)
	})
	if err != nil {
		l.logger.Warn("Hold rejected", "owner_id", req.OwnerID.String(), "amount", req.Amount, "error", err)
		return nil, err
	}

	l.logger.Info("Hold created", "owner_id", req.OwnerID.String(), "hold_id", hold.ID.String(), "amount", hold.Amount)
	return hold, nil
}

// consumeReferencePrefix marks a hold released as consumed through ReleaseHold
const consumeReferencePrefix = "HOLD-"

// ReleaseHold closes an active hold. With returnToAvailable the funds go back to the
// available balance; otherwise the full amount is consumed from the balance as a payout.
func (l *Ledger) ReleaseHold(ctx context.Context, holdID uuid.UUID, returnToAvailable bool) (*wallet.Hold, error) {
	if !returnToAvailable {
		h, err := l.holds.GetByID(ctx, holdID)
		if err != nil {
			return nil, err
		}
		res, err := l.CaptureHold(ctx, CaptureRequest{
			HoldID:      holdID,
			Amount:      h.Amount,
			Reference:   consumeReferencePrefix + holdID.String(),
			Type:        shared.TransactionTypeJobPayment,
			Description: "hold consumed",
			JobID:       h.JobID,
		})
		if err != nil {
			return nil, err
		}
		return res.Hold, nil
	}

	var released *wallet.Hold
	err := l.withLockedHold(ctx, holdID, func(tx pgx.Tx, w *wallet.Wallet, h *wallet.Hold) error {
		now := l.now()
		if err := w.Unreserve(h.Amount, now); err != nil {
			return err
		}
		if err := l.wallets.WithTx(tx).UpdateBalances(ctx, w); err != nil {
			return err
		}
		h.Close(wallet.HoldStatusReleased, now)
		if err := l.holds.WithTx(tx).UpdateStatus(ctx, h); err != nil {
			return err
		}
		released = h
		return l.recordHold(ctx, tx, outbox.EventHoldReleased, h, h.Amount)
	})
	if err != nil {
		l.logger.Warn("Hold release rejected", "hold_id", holdID.String(), "error", err)
		return nil, err
	}

	l.logger.Info("Hold released", "hold_id", holdID.String(), "amount", released.Amount)
	return released, nil
}

// CaptureRequest consumes part or all of a hold as a debit
type CaptureRequest struct {
	HoldID      uuid.UUID
	Amount      int64
	Reference   string
	Type        shared.TransactionType
	Description string
	JobID       *uuid.UUID
	EscrowID    *uuid.UUID
}

// Metadata keys on capture transactions. The remainder id lets a retried caller
// find the replacement hold from the stored transaction alone.
const (
	MetadataHoldID          = "hold_id"
	MetadataRemainderHoldID = "remainder_hold_id"
)

// CaptureResult is the debit recorded by a capture and the hold state afterwards
type CaptureResult struct {
	Transaction *wallet.Transaction
	// Hold is the captured hold, now released
	Hold *wallet.Hold
	// Remainder is the replacement hold for what was not captured; nil when fully captured
	Remainder *wallet.Hold
}

// CaptureHold releases a hold, removes Amount from the balance as a debit transaction
// and reopens a replacement hold for the rest, all in one transaction.
func (l *Ledger) CaptureHold(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if req.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	if req.Reference == "" {
		return nil, wallet.ErrEmptyReference
	}
	if req.Type == "" {
		req.Type = shared.TransactionTypeJobPayment
	}
	if !req.Type.Valid() {
		return nil, shared.ValidationError{Field: "type", Reason: "is not a known transaction type"}
	}
	if err := l.ensureUnused(ctx, req.Reference); err != nil {
		return nil, err
	}

	logger := l.logger.With("hold_id", req.HoldID.String(), "reference", req.Reference)

	result := &CaptureResult{}
	err := l.withLockedHold(ctx, req.HoldID, func(tx pgx.Tx, w *wallet.Wallet, h *wallet.Hold) error {
		if req.Amount > h.Amount {
			return wallet.ErrHoldExceedsReserved{WalletID: w.ID, Amount: req.Amount, Held: h.Amount}
		}

		now := l.now()
		h.Close(wallet.HoldStatusReleased, now)
		if err := l.holds.WithTx(tx).UpdateStatus(ctx, h); err != nil {
			return err
		}
		result.Hold = h

		if rest := h.Amount - req.Amount; rest > 0 {
			result.Remainder = &wallet.Hold{
				ID:        uuid.New(),
				WalletID:  h.WalletID,
				JobID:     h.JobID,
				Amount:    rest,
				Reason:    h.Reason,
				Status:    wallet.HoldStatusActive,
				CreatedAt: now,
				ExpiresAt: h.ExpiresAt,
			}
			if err := l.holds.WithTx(tx).Create(ctx, result.Remainder); err != nil {
				return err
			}
		}

		jobID := req.JobID
		if jobID == nil {
			jobID = h.JobID
		}
		metadata := map[string]any{MetadataHoldID: h.ID.String()}
		if result.Remainder != nil {
			metadata[MetadataRemainderHoldID] = result.Remainder.ID.String()
		}
		txn, err := l.apply(ctx, tx, w, EntryRequest{
			OwnerID:     w.OwnerID,
			Amount:      req.Amount,
			Type:        req.Type,
			Description: req.Description,
			Reference:   req.Reference,
			Metadata:    metadata,
			JobID:       jobID,
			EscrowID:    req.EscrowID,
		}, moveConsume)
		if err != nil {
			return err
		}
		result.Transaction = txn

		payload := transactionPayload(txn)
		payload["hold_id"] = h.ID.String()
		if result.Remainder != nil {
			payload["remainder_hold_id"] = result.Remainder.ID.String()
			payload["remainder"] = result.Remainder.Amount
		}
		return l.events.Record(ctx, tx, outbox.EventHoldCaptured, outbox.AggregateWallet, w.ID, payload)
	})
	if err != nil {
		err = l.resolveDuplicate(ctx, req.Reference, err)
		logger.Warn("Hold capture rejected", "amount", req.Amount, "error", err)
		return nil, err
	}

	logger.Info("Hold captured", "amount", req.Amount, "remainder", result.Hold.Amount-req.Amount)
	return result, nil
}

// ExpireHolds returns expired active holds to available balance, at most limit per call.
// Each hold is expired in its own transaction; failures are logged and reported together.
func (l *Ledger) ExpireHolds(ctx context.Context, now time.Time, limit int) (int, error) {
	expired, err := l.holds.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired holds: %w", err)
	}

	var (
		count int
		errs  []error
	)
	for _, candidate := range expired {
		err := l.withLockedHold(ctx, candidate.ID, func(tx pgx.Tx, w *wallet.Wallet, h *wallet.Hold) error {
			if err := w.Unreserve(h.Amount, now); err != nil {
				return err
			}
			if err := l.wallets.WithTx(tx).UpdateBalances(ctx, w); err != nil {
				return err
			}
			h.Close(wallet.HoldStatusExpired, now)
			if err := l.holds.WithTx(tx).UpdateStatus(ctx, h); err != nil {
				return err
			}
			return l.recordHold(ctx, tx, outbox.EventHoldExpired, h, h.Amount)
		})
		if err != nil {
			// captured or released since the listing
			var notActive wallet.ErrHoldNotActive
			if errors.As(err, &notActive) {
				continue
			}
			l.logger.Error("Failed to expire hold", "hold_id", candidate.ID.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		count++
	}

	if count > 0 {
		l.logger.Info("Expired holds released", "count", count)
	}
	return count, errors.Join(errs...)
}

// withLockedHold locks the hold's wallet then the hold itself and runs fn if the hold is still active
func (l *Ledger) withLockedHold(ctx context.Context, holdID uuid.UUID, fn func(tx pgx.Tx, w *wallet.Wallet, h *wallet.Hold) error) error {
	h, err := l.holds.GetByID(ctx, holdID)
	if err != nil {
		return err
	}
	owner, err := l.wallets.GetByID(ctx, h.WalletID)
	if err != nil {
		return err
	}

	return l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := l.wallets.WithTx(tx).LockByOwner(ctx, owner.OwnerID)
		if err != nil {
			return err
		}
		locked, err := l.holds.WithTx(tx).LockByID(ctx, holdID)
		if err != nil {
			return err
		}
		if !locked.IsActive() {
			return wallet.ErrHoldNotActive{HoldID: locked.ID, Status: locked.Status}
		}
		return fn(tx, w, locked)
	})
}

func (l *Ledger) recordHold(ctx context.Context, tx pgx.Tx, eventType string, h *wallet.Hold, amount int64) error {
	payload := map[string]any{
		"hold_id":   h.ID.String(),
		"reference": consumeReferencePrefix + h.ID.String(),
		"amount":    amount,
		"reason":    h.Reason,
		"status":    string(h.Status),
	}
	if h.JobID != nil {
		payload["job_id"] = h.JobID.String()
	}
	return l.events.Record(ctx, tx, eventType, outbox.AggregateWallet, h.WalletID, payload)
}
