// Package dispute_engine arbitrates disagreements over a job. It freezes the job's escrow,
// routes the dispute to an arbitrator and, once a ruling is final, tells the escrow engine
// where the funds go.
package dispute_engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/user"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Escrows is the part of the escrow engine a dispute drives
type Escrows interface {
	GetByJob(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error)
	HandleDispute(ctx context.Context, jobID, disputeID uuid.UUID) (*escrow.Escrow, error)
	ResolveDispute(ctx context.Context, jobID uuid.UUID, res escrow.Resolution) (*escrow.Escrow, error)
}

var _ Escrows = (*escrow_engine.Engine)(nil)

type Dependencies struct {
	DB       persistence.TxManager
	Disputes dispute.Repository
	Jobs     job.Repository
	Users    user.Repository
	Escrows  Escrows
	Counter  dispute.AssignmentCounter
	Events   events.Recorder
	Config   *config.DisputeConfig
	Logger   *slog.Logger
}

type Engine struct {
	db       persistence.TxManager
	disputes dispute.Repository
	jobs     job.Repository
	users    user.Repository
	escrows  Escrows
	counter  dispute.AssignmentCounter
	events   events.Recorder
	cfg      *config.DisputeConfig
	logger   *slog.Logger
	now      func() time.Time
}

func New(deps Dependencies) *Engine {
	return &Engine{
		db:       deps.DB,
		disputes: deps.Disputes,
		jobs:     deps.Jobs,
		users:    deps.Users,
		escrows:  deps.Escrows,
		counter:  deps.Counter,
		events:   deps.Events,
		cfg:      deps.Config,
		logger:   deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest raises a dispute on a job
type CreateRequest struct {
	JobID       uuid.UUID
	RaisedBy    uuid.UUID
	Reason      string
	Description string
	Evidence    []string
}

// Create opens a dispute raised by a job participant against the other one, marks the job
// disputed, freezes its escrow and assigns an arbitrator. When no arbitrator is available
// the dispute stays Open and can be assigned later with AssignVerifier.
func (g *Engine) Create(ctx context.Context, req CreateRequest) (*dispute.Dispute, error) {
	j, err := g.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if !j.Participants().Has(req.RaisedBy, shared.RoleEmployer, shared.RoleWorker) {
		return nil, dispute.ErrNotParticipant{UserID: req.RaisedBy, JobID: j.ID}
	}
	if !j.Status.Disputable() {
		return nil, shared.ValidationError{Field: "job_status", Reason: "does not allow a dispute: " + string(j.Status)}
	}
	if err := g.checkEscrowFreezable(ctx, j.ID); err != nil {
		return nil, err
	}

	d, err := dispute.New(j.ID, req.RaisedBy, j.CounterpartOf(req.RaisedBy), req.Reason, req.Description, req.Evidence)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = g.now()
	d.UpdatedAt = d.CreatedAt

	logger := g.logger.With("dispute_id", d.ID.String(), "job_id", j.ID.String())

	err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.disputes.WithTx(tx).Create(ctx, d); err != nil {
			return err
		}
		if err := g.jobs.WithTx(tx).UpdateStatus(ctx, j.ID, job.StatusDisputed); err != nil {
			return err
		}
		return g.events.Record(ctx, tx, outbox.EventDisputeCreated, outbox.AggregateDispute, d.ID, disputePayload(d))
	})
	if err != nil {
		logger.Error("Failed to create dispute", "error", err)
		return nil, err
	}

	if _, err := g.escrows.HandleDispute(ctx, j.ID, d.ID); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			logger.Error("Failed to freeze escrow for dispute", "error", err)
			return nil, err
		}
		logger.Info("Job has no escrow, dispute proceeds without frozen funds")
	}

	assigned, err := g.assign(ctx, d.ID)
	if err != nil {
		if !errors.Is(err, dispute.ErrNoArbitrator) {
			return nil, err
		}
		logger.Warn("No arbitrator available, dispute left open")
		return d, nil
	}

	logger.Info("Dispute created", "raised_by", req.RaisedBy.String(), "verifier", assigned.AssignedVerifier.String())
	return assigned, nil
}

// checkEscrowFreezable rejects a dispute whose escrow is already settled, before anything
// about the job changes. A job without an escrow can still be disputed.
func (g *Engine) checkEscrowFreezable(ctx context.Context, jobID uuid.UUID) error {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !escrow.CanTransition(e.Status, escrow.StatusDisputed) {
		return escrow.ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: escrow.StatusDisputed}
	}
	return nil
}

// AssignVerifier routes an Open dispute to the least-loaded arbitrator
func (g *Engine) AssignVerifier(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	return g.assign(ctx, disputeID)
}

func (g *Engine) assign(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	verifier, err := g.chooseArbitrator(ctx)
	if err != nil {
		return nil, err
	}

	var d *dispute.Dispute
	err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := g.disputes.WithTx(tx)
		locked, err := repo.LockByID(ctx, disputeID)
		if err != nil {
			return err
		}
		if err := locked.Assign(verifier, g.now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, locked); err != nil {
			return err
		}
		d = locked
		return g.events.Record(ctx, tx, outbox.EventDisputeAssigned, outbox.AggregateDispute, d.ID, disputePayload(d))
	})
	if err != nil {
		return nil, err
	}

	if err := g.counter.Increment(ctx, verifier); err != nil {
		g.logger.Error("Failed to count arbitrator assignment", "dispute_id", disputeID.String(),
			"verifier", verifier.String(), "error", err)
	}
	return d, nil
}

// chooseArbitrator picks among verifiers with no open dispute, or admins when every
// verifier is busy, the one with the lowest assignment count. Ties go to list order.
func (g *Engine) chooseArbitrator(ctx context.Context) (uuid.UUID, error) {
	verifiers, err := g.users.ListByRole(ctx, shared.RoleVerifier)
	if err != nil {
		return uuid.Nil, err
	}
	ids := make([]uuid.UUID, 0, len(verifiers))
	for _, v := range verifiers {
		ids = append(ids, v.ID)
	}
	open, err := g.disputes.OpenCountsByVerifier(ctx, ids)
	if err != nil {
		return uuid.Nil, err
	}

	var candidates []uuid.UUID
	for _, id := range ids {
		if open[id] == 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		admins, err := g.users.ListByRole(ctx, shared.RoleAdmin)
		if err != nil {
			return uuid.Nil, err
		}
		for _, a := range admins {
			candidates = append(candidates, a.ID)
		}
	}
	if len(candidates) == 0 {
		return uuid.Nil, dispute.ErrNoArbitrator
	}

	best, bestCount := uuid.Nil, int64(-1)
	for _, id := range candidates {
		n, err := g.counter.Count(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if bestCount < 0 || n < bestCount {
			best, bestCount = id, n
		}
	}
	return best, nil
}

// GetByID returns the dispute
func (g *Engine) GetByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	return g.disputes.GetByID(ctx, id)
}

// GetPendingForVerifier lists the verifier's disputes in UnderReview or Escalated
func (g *Engine) GetPendingForVerifier(ctx context.Context, verifierID uuid.UUID) ([]*dispute.Dispute, error) {
	return g.disputes.ListPendingForVerifier(ctx, verifierID)
}

// save persists d with its outbox event
func (g *Engine) save(ctx context.Context, d *dispute.Dispute, eventType string) error {
	return g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.disputes.WithTx(tx).Update(ctx, d); err != nil {
			return err
		}
		return g.events.Record(ctx, tx, eventType, outbox.AggregateDispute, d.ID, disputePayload(d))
	})
}

func disputePayload(d *dispute.Dispute) map[string]any {
	payload := map[string]any{
		"dispute_id": d.ID.String(),
		"job_id":     d.JobID.String(),
		"raised_by":  d.RaisedBy.String(),
		"against":    d.Against.String(),
		"status":     string(d.Status),
		"reason":     d.Reason,
	}
	if d.AssignedVerifier != nil {
		payload["assigned_verifier"] = d.AssignedVerifier.String()
	}
	if d.Decision != nil {
		payload["decision"] = string(*d.Decision)
	}
	if d.PaymentPercentage != nil {
		payload["payment_percentage"] = *d.PaymentPercentage
	}
	if d.EscalationAdmin != nil {
		payload["escalation_admin"] = d.EscalationAdmin.String()
	}
	return payload
}
