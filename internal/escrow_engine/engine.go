// Package escrow_engine tracks the funds committed to one job. The money itself stays in
// the employer's wallet as a ledger hold; the engine drives the escrow state machine and
// calls the ledger for every movement.
package escrow_engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ledger is the part of the wallet ledger the escrow engine moves money through
type Ledger interface {
	CalculateFee(ctx context.Context, txType shared.TransactionType, amount int64) (int64, error)
	CreateHold(ctx context.Context, req wallet_ledger.HoldRequest) (*wallet.Hold, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID, returnToAvailable bool) (*wallet.Hold, error)
	CaptureHold(ctx context.Context, req wallet_ledger.CaptureRequest) (*wallet_ledger.CaptureResult, error)
	Credit(ctx context.Context, req wallet_ledger.EntryRequest) (*wallet.Transaction, error)
}

var _ Ledger = (*wallet_ledger.Ledger)(nil)

// Dependencies wires the engine to its stores and collaborators. Cache may be nil.
type Dependencies struct {
	DB      persistence.TxManager
	Escrows escrow.Repository
	Ledger  Ledger
	Events  events.Recorder
	Cache   escrow.StateCache
	Config  *config.EscrowConfig
	Logger  *slog.Logger
}

type Engine struct {
	db      persistence.TxManager
	escrows escrow.Repository
	ledger  Ledger
	events  events.Recorder
	cache   escrow.StateCache
	cfg     *config.EscrowConfig
	logger  *slog.Logger
	now     func() time.Time
}

func New(deps Dependencies) *Engine {
	return &Engine{
		db:      deps.DB,
		escrows: deps.Escrows,
		ledger:  deps.Ledger,
		events:  deps.Events,
		cache:   deps.Cache,
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest commits an employer's funds to a job
type CreateRequest struct {
	JobID      uuid.UUID
	EmployerID uuid.UUID
	Amount     int64
	// Fee overrides the configured job_payment fee tier when set
	Fee     *int64
	Partial escrow.PartialPaymentConfig
}

// Create persists a Created escrow, places a hold for amount plus fee on the employer's
// wallet and moves to Funded. If the hold fails the escrow is cancelled and the ledger
// error is returned.
func (g *Engine) Create(ctx context.Context, req CreateRequest) (*escrow.Escrow, error) {
	fee, err := g.fee(ctx, req)
	if err != nil {
		return nil, err
	}
	e, err := escrow.New(req.JobID, req.EmployerID, req.Amount, fee, req.Partial)
	if err != nil {
		return nil, err
	}

	logger := g.logger.With("escrow_id", e.ID.String(), "job_id", req.JobID.String())

	err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.escrows.WithTx(tx).Create(ctx, e); err != nil {
			return err
		}
		return g.events.Record(ctx, tx, outbox.EventEscrowCreated, outbox.AggregateEscrow, e.ID, escrowPayload(e, e.Total(), ""))
	})
	if err != nil {
		logger.Warn("Failed to create escrow", "error", err)
		return nil, err
	}

	hold, holdErr := g.ledger.CreateHold(ctx, wallet_ledger.HoldRequest{
		OwnerID:   e.EmployerID,
		JobID:     &e.JobID,
		Amount:    e.Total(),
		Reason:    "escrow " + e.ID.String(),
		ExpiresAt: g.holdExpiry(),
	})
	if holdErr != nil {
		logger.Warn("Escrow hold failed, cancelling", "amount", e.Total(), "error", holdErr)
		if err := e.TransitionTo(escrow.StatusCancelled, g.now()); err != nil {
			return nil, err
		}
		if err := g.save(ctx, e, outbox.EventEscrowCancelled, 0, ""); err != nil {
			logger.Error("Failed to persist cancelled escrow", "error", err)
		}
		return nil, holdErr
	}

	e.HoldID = &hold.ID
	e.HeldAmount = hold.Amount
	if err := e.TransitionTo(escrow.StatusFunded, g.now()); err != nil {
		return nil, err
	}
	if err := g.save(ctx, e, outbox.EventEscrowFunded, hold.Amount, ""); err != nil {
		logger.Error("Failed to persist funded escrow, releasing hold", "hold_id", hold.ID.String(), "error", err)
		if _, relErr := g.ledger.ReleaseHold(ctx, hold.ID, true); relErr != nil {
			logger.Error("Failed to release orphaned escrow hold, manual reconciliation required",
				"hold_id", hold.ID.String(), "amount", hold.Amount, "error", relErr)
		}
		return nil, err
	}

	logger.Info("Escrow funded", "amount", e.Amount, "fee", e.PlatformFee, "held", e.HeldAmount)
	return e, nil
}

func (g *Engine) fee(ctx context.Context, req CreateRequest) (int64, error) {
	if req.Fee != nil {
		return *req.Fee, nil
	}
	if req.Amount <= 0 {
		return 0, escrow.ErrInvalidAmount
	}
	return g.ledger.CalculateFee(ctx, shared.TransactionTypeJobPayment, req.Amount)
}

func (g *Engine) holdExpiry() *time.Time {
	if g.cfg.HoldTTL <= 0 {
		return nil
	}
	at := g.now().Add(g.cfg.HoldTTL)
	return &at
}

// AssignWorker records the worker who will be paid from the escrow
func (g *Engine) AssignWorker(ctx context.Context, jobID, workerID uuid.UUID) (*escrow.Escrow, error) {
	if workerID == uuid.Nil {
		return nil, escrow.ErrWorkerNotAssigned
	}
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if e.Status.IsTerminal() || e.Status == escrow.StatusDisputed {
		return nil, shared.ValidationError{Field: "status", Reason: "does not allow worker assignment: " + string(e.Status)}
	}
	if e.WorkerID != nil && *e.WorkerID != workerID && e.ReleasedAmount > 0 {
		return nil, shared.ValidationError{Field: "worker_id", Reason: "cannot change after a release"}
	}

	e.WorkerID = &workerID
	e.UpdatedAt = g.now()
	if err := g.escrows.Update(ctx, e); err != nil {
		return nil, err
	}
	g.invalidate(ctx, jobID)

	g.logger.Info("Escrow worker assigned", "escrow_id", e.ID.String(), "worker_id", workerID.String())
	return e, nil
}

// Cancel closes a Created escrow that never got funded
func (g *Engine) Cancel(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := e.TransitionTo(escrow.StatusCancelled, g.now()); err != nil {
		return nil, err
	}
	if err := g.save(ctx, e, outbox.EventEscrowCancelled, 0, ""); err != nil {
		return nil, err
	}
	return e, nil
}

// HandleDispute freezes the escrow. No funds move.
func (g *Engine) HandleDispute(ctx context.Context, jobID, disputeID uuid.UUID) (*escrow.Escrow, error) {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := e.TransitionTo(escrow.StatusDisputed, g.now()); err != nil {
		return nil, err
	}
	e.DisputeID = &disputeID
	if err := g.save(ctx, e, outbox.EventEscrowDisputed, e.HeldAmount, ""); err != nil {
		return nil, err
	}

	g.logger.Info("Escrow frozen for dispute", "escrow_id", e.ID.String(), "dispute_id", disputeID.String())
	return e, nil
}

// ResolveDispute settles a disputed escrow. Favouring the employer returns the held funds
// and ends Refunded; favouring the worker pays the percentage of the original amount and
// ends Completed.
func (g *Engine) ResolveDispute(ctx context.Context, jobID uuid.UUID, res escrow.Resolution) (*escrow.Escrow, error) {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if e.Status != escrow.StatusDisputed {
		to := escrow.StatusCompleted
		if !res.FavorWorker {
			to = escrow.StatusRefunded
		}
		return nil, escrow.ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: to}
	}

	if !res.FavorWorker {
		return g.refund(ctx, e)
	}
	if res.WorkerPercentage < 1 || res.WorkerPercentage > 100 {
		return nil, escrow.ErrInvalidPercentage
	}
	if e.WorkerID == nil {
		return nil, escrow.ErrWorkerNotAssigned
	}

	pay := e.Payable()
	if res.WorkerPercentage < 100 {
		pay = e.PartialAmount(res.WorkerPercentage)
	}
	return g.settle(ctx, e, pay)
}

// refund returns everything still held to the employer
func (g *Engine) refund(ctx context.Context, e *escrow.Escrow) (*escrow.Escrow, error) {
	if err := g.returnHold(ctx, e); err != nil {
		return nil, err
	}
	returned := e.HeldAmount
	e.HeldAmount = 0
	e.HoldID = nil
	if err := e.TransitionTo(escrow.StatusRefunded, g.now()); err != nil {
		return nil, err
	}
	if err := g.save(ctx, e, outbox.EventEscrowRefunded, returned, ""); err != nil {
		return nil, err
	}

	g.logger.Info("Escrow refunded to employer", "escrow_id", e.ID.String(), "amount", returned)
	return e, nil
}

// GetByJob returns the persisted escrow for the job
func (g *Engine) GetByJob(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	return g.escrows.GetByJob(ctx, jobID)
}

func (g *Engine) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	return g.escrows.GetByID(ctx, id)
}

// GetStatus answers from the state cache and falls back to the store on a miss.
// The store is authoritative; cache failures only cost the round trip.
func (g *Engine) GetStatus(ctx context.Context, jobID uuid.UUID) (escrow.Status, error) {
	if g.cache != nil {
		status, ok, err := g.cache.Get(ctx, jobID)
		if err != nil {
			g.logger.Warn("Escrow state cache read failed", "job_id", jobID.String(), "error", err)
		} else if ok {
			return status, nil
		}
	}

	e, err := g.escrows.GetByJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, jobID, e.Status, g.cfg.CacheTTL); err != nil {
			g.logger.Warn("Escrow state cache write failed", "job_id", jobID.String(), "error", err)
		}
	}
	return e.Status, nil
}

// save persists e with its outbox event and drops the cached status
func (g *Engine) save(ctx context.Context, e *escrow.Escrow, eventType string, amount int64, reference string) error {
	err := g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.escrows.WithTx(tx).Update(ctx, e); err != nil {
			return err
		}
		return g.events.Record(ctx, tx, eventType, outbox.AggregateEscrow, e.ID, escrowPayload(e, amount, reference))
	})
	g.invalidate(ctx, e.JobID)
	return err
}

func (g *Engine) invalidate(ctx context.Context, jobID uuid.UUID) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Invalidate(ctx, jobID); err != nil {
		g.logger.Warn("Escrow state cache invalidation failed", "job_id", jobID.String(), "error", err)
	}
}

func escrowPayload(e *escrow.Escrow, amount int64, reference string) map[string]any {
	payload := map[string]any{
		"escrow_id":       e.ID.String(),
		"job_id":          e.JobID.String(),
		"employer_id":     e.EmployerID.String(),
		"status":          string(e.Status),
		"amount":          amount,
		"held_amount":     e.HeldAmount,
		"released_amount": e.ReleasedAmount,
	}
	if reference != "" {
		payload["reference"] = reference
	}
	if e.WorkerID != nil {
		payload["worker_id"] = e.WorkerID.String()
	}
	if e.DisputeID != nil {
		payload["dispute_id"] = e.DisputeID.String()
	}
	return payload
}
