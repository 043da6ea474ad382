package escrow_engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/google/uuid"
)

// Every money movement below uses escrow.StepReference(round, step), so a retried round
// replays into ErrDuplicateReference for the steps that already committed and carries on
// from the first step that did not.

// ReleasePartial pays pct percent of the original amount to the worker. A pct of zero uses
// the percentage configured on the escrow. If the worker credit fails the captured funds
// go back to the employer and the pay error is returned.
func (g *Engine) ReleasePartial(ctx context.Context, jobID uuid.UUID, pct int) (*escrow.Escrow, error) {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !e.PartialPaymentAllowed {
		return nil, escrow.ErrPartialNotAllowed
	}
	if pct == 0 {
		pct = e.PartialPaymentPercentage
	}
	if pct < 1 || pct > 100 {
		return nil, escrow.ErrInvalidPercentage
	}
	if e.WorkerID == nil {
		return nil, escrow.ErrWorkerNotAssigned
	}
	if !escrow.CanTransition(e.Status, escrow.StatusPartialRelease) {
		return nil, escrow.ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: escrow.StatusPartialRelease}
	}
	amount := e.PartialAmount(pct)
	if amount == 0 || e.HoldID == nil {
		return nil, escrow.ErrNothingToRelease
	}

	round := e.ReleaseCount + 1
	if err := g.payWorker(ctx, e, round, amount); err != nil {
		return nil, err
	}
	if err := e.TransitionTo(escrow.StatusPartialRelease, g.now()); err != nil {
		return nil, err
	}
	if err := g.save(ctx, e, outbox.EventEscrowPartiallyReleased, amount, e.StepReference(round, escrow.StepPay)); err != nil {
		return nil, err
	}

	g.logger.Info("Escrow partially released",
		"escrow_id", e.ID.String(),
		"round", round,
		"percentage", pct,
		"amount", amount,
		"held", e.HeldAmount,
	)
	return e, nil
}

// Complete pays everything still payable to the worker, moves the fee to the platform
// and returns any leftover to the employer.
func (g *Engine) Complete(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if e.Status == escrow.StatusDisputed {
		// disputed escrows complete only through ResolveDispute
		return nil, escrow.ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: escrow.StatusCompleted}
	}
	if e.WorkerID == nil {
		return nil, escrow.ErrWorkerNotAssigned
	}
	return g.settle(ctx, e, e.Payable())
}

// settle pays pay to the worker and closes the escrow as Completed
func (g *Engine) settle(ctx context.Context, e *escrow.Escrow, pay int64) (*escrow.Escrow, error) {
	if !escrow.CanTransition(e.Status, escrow.StatusCompleted) {
		return nil, escrow.ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: escrow.StatusCompleted}
	}
	if pay > e.Payable() {
		pay = e.Payable()
	}

	round := e.ReleaseCount + 1
	if pay > 0 {
		if err := g.payWorker(ctx, e, round, pay); err != nil {
			return nil, err
		}
	}
	e.ReleaseCount = round

	g.collectFee(ctx, e, round)

	returned := e.HeldAmount
	if err := g.returnHold(ctx, e); err != nil {
		return nil, err
	}
	e.HeldAmount = 0
	e.HoldID = nil

	if err := e.TransitionTo(escrow.StatusCompleted, g.now()); err != nil {
		return nil, err
	}
	if err := g.save(ctx, e, outbox.EventEscrowCompleted, pay, e.StepReference(round, escrow.StepPay)); err != nil {
		return nil, err
	}

	g.logger.Info("Escrow completed",
		"escrow_id", e.ID.String(),
		"paid", pay,
		"released_total", e.ReleasedAmount,
		"returned", returned,
	)
	return e, nil
}

// payWorker captures amount from the escrow hold and credits it to the worker.
// On success e reflects the new hold, held and released amounts for this round.
// On failure the captured funds are credited back to the employer, e is persisted
// with the smaller hold and the pay error is returned.
func (g *Engine) payWorker(ctx context.Context, e *escrow.Escrow, round int, amount int64) error {
	capRef := e.StepReference(round, escrow.StepCapture)
	remainder, err := g.capture(ctx, e, amount, capRef)
	if err != nil {
		g.logger.Warn("Escrow capture failed", "escrow_id", e.ID.String(), "reference", capRef, "error", err)
		return err
	}
	e.HoldID = remainder
	e.HeldAmount -= amount
	e.ReleaseCount = round

	payRef := e.StepReference(round, escrow.StepPay)
	payErr := g.credit(ctx, e, *e.WorkerID, amount, shared.TransactionTypeJobPayment, payRef, "escrow payment")
	if payErr == nil {
		e.ReleasedAmount += amount
		return nil
	}

	logger := g.logger.With("escrow_id", e.ID.String(), "round", round, "amount", amount)
	logger.Warn("Worker credit failed, compensating employer", "reference", payRef, "error", payErr)

	compRef := e.StepReference(round, escrow.StepCompensate)
	compErr := g.credit(ctx, e, e.EmployerID, amount, shared.TransactionTypeJobRefund, compRef, "escrow payment compensated")
	if compErr != nil {
		logger.Error("Escrow compensation failed, manual reconciliation required", "reference", compRef, "error", compErr)
	}
	if err := g.save(ctx, e, outbox.EventEscrowCompensated, amount, compRef); err != nil {
		logger.Error("Failed to persist compensated escrow", "error", err)
	}
	if compErr != nil {
		return errors.Join(payErr, compErr)
	}
	return payErr
}

// collectFee moves the platform fee out of the hold when a platform wallet is configured.
// Without one the fee stays in the hold and returns to the employer. Failures here never
// undo the worker payment: a failed platform credit is refunded to the employer.
func (g *Engine) collectFee(ctx context.Context, e *escrow.Escrow, round int) {
	fee := min(e.PlatformFee, e.HeldAmount)
	if fee <= 0 || g.cfg.PlatformOwnerID == uuid.Nil || e.HoldID == nil {
		return
	}

	logger := g.logger.With("escrow_id", e.ID.String(), "fee", fee)

	feeRef := e.StepReference(round, escrow.StepFee)
	remainder, err := g.capture(ctx, e, fee, feeRef)
	if err != nil {
		logger.Warn("Platform fee capture failed, fee returns to employer", "reference", feeRef, "error", err)
		return
	}
	e.HoldID = remainder
	e.HeldAmount -= fee

	creditRef := e.StepReference(round, escrow.StepFeeCredit)
	err = g.credit(ctx, e, g.cfg.PlatformOwnerID, fee, shared.TransactionTypePlatformFee, creditRef, "platform fee")
	if err == nil {
		return
	}

	logger.Warn("Platform fee credit failed, refunding employer", "reference", creditRef, "error", err)
	refundRef := e.StepReference(round, escrow.StepRefund)
	if err := g.credit(ctx, e, e.EmployerID, fee, shared.TransactionTypeJobRefund, refundRef, "platform fee refunded"); err != nil {
		logger.Error("Platform fee refund failed, manual reconciliation required", "reference", refundRef, "error", err)
	}
}

// returnHold releases whatever the escrow still holds back to the employer's available balance
func (g *Engine) returnHold(ctx context.Context, e *escrow.Escrow) error {
	if e.HoldID == nil || e.HeldAmount == 0 {
		return nil
	}
	_, err := g.ledger.ReleaseHold(ctx, *e.HoldID, true)
	var notActive wallet.ErrHoldNotActive
	if errors.As(err, &notActive) {
		// released on an earlier attempt or expired; the funds are already available
		g.logger.Info("Escrow hold already closed", "escrow_id", e.ID.String(), "hold_status", string(notActive.Status))
		return nil
	}
	return err
}

// capture consumes amount from the escrow's current hold and returns the replacement hold id
func (g *Engine) capture(ctx context.Context, e *escrow.Escrow, amount int64, reference string) (*uuid.UUID, error) {
	if e.HoldID == nil {
		return nil, escrow.ErrNothingToRelease
	}
	res, err := g.ledger.CaptureHold(ctx, wallet_ledger.CaptureRequest{
		HoldID:      *e.HoldID,
		Amount:      amount,
		Reference:   reference,
		Type:        shared.TransactionTypeJobPayment,
		Description: "escrow " + e.ID.String(),
		JobID:       &e.JobID,
		EscrowID:    &e.ID,
	})
	if err == nil {
		if res.Remainder == nil {
			return nil, nil
		}
		return &res.Remainder.ID, nil
	}

	var notActive wallet.ErrHoldNotActive
	if errors.As(err, &notActive) && notActive.Status == wallet.HoldStatusReleased {
		// a concurrent round captured this hold after e was read
		return nil, fmt.Errorf("%w: %v", escrow.ErrStaleEscrow{EscrowID: e.ID, Version: e.Version}, err)
	}
	var dup wallet.ErrDuplicateReference
	if !errors.As(err, &dup) || dup.Existing == nil {
		return nil, err
	}
	if dup.Existing.Amount != amount {
		return nil, escrow.ErrStepMismatch{Reference: reference, Requested: amount, Recorded: dup.Existing.Amount}
	}
	return remainderFromMetadata(dup.Existing)
}

func remainderFromMetadata(txn *wallet.Transaction) (*uuid.UUID, error) {
	if len(txn.Metadata) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(txn.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to read capture metadata for %s: %w", txn.Reference, err)
	}
	raw, ok := meta[wallet_ledger.MetadataRemainderHoldID].(string)
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid remainder hold id on %s: %w", txn.Reference, err)
	}
	return &id, nil
}

// credit posts a ledger credit for the escrow. A replayed reference counts as done when it
// recorded the same owner and amount.
func (g *Engine) credit(ctx context.Context, e *escrow.Escrow, owner uuid.UUID, amount int64,
	txType shared.TransactionType, reference, description string) error {
	_, err := g.ledger.Credit(ctx, wallet_ledger.EntryRequest{
		OwnerID:     owner,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Reference:   reference,
		JobID:       &e.JobID,
		EscrowID:    &e.ID,
	})
	var dup wallet.ErrDuplicateReference
	if !errors.As(err, &dup) {
		return err
	}
	if dup.Existing != nil && (dup.Existing.OwnerID != owner || dup.Existing.Amount != amount) {
		return escrow.ErrStepMismatch{Reference: reference, Requested: amount, Recorded: dup.Existing.Amount}
	}
	return nil
}
