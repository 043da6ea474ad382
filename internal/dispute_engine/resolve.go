package dispute_engine

import (
	"context"
	"errors"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Resolve records the assigned verifier's ruling. Rulings on escrows above the high-value
// threshold are parked in Escalated and return a pending outcome until an admin confirms;
// the verifier's next call then finalises with the stored ruling.
func (g *Engine) Resolve(ctx context.Context, disputeID, verifierID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error) {
	d, err := g.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if remaining := d.CoolDownRemaining(g.cfg.CoolDown, g.now()); remaining > 0 {
		return nil, dispute.ErrCoolDown{DisputeID: d.ID, Remaining: remaining}
	}
	if !d.IsAssignedTo(verifierID) {
		return nil, shared.UnauthorizedError{ActorID: verifierID.String(), Action: "resolve dispute " + d.ID.String()}
	}
	if d.Status != dispute.StatusUnderReview && d.Status != dispute.StatusEscalated {
		return nil, dispute.ErrInvalidStatus{DisputeID: d.ID, Current: d.Status, Wanted: dispute.StatusResolved}
	}

	logger := g.logger.With("dispute_id", d.ID.String(), "verifier", verifierID.String())

	if d.Status == dispute.StatusEscalated {
		if !d.IsConfirmed() {
			logger.Info("Escalated dispute still awaiting admin verification")
			return &dispute.Outcome{Dispute: d, Pending: true}, nil
		}
		return g.finalize(ctx, d, *d.Decision, *d.PaymentPercentage, d.Resolution)
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	highValue, err := g.isHighValue(ctx, d.JobID)
	if err != nil {
		return nil, err
	}
	if highValue {
		d.RecordDecision(in.Decision, in.Percentage(), in.Resolution, g.now())
		if err := d.TransitionTo(dispute.StatusEscalated, g.now()); err != nil {
			return nil, err
		}
		if err := g.save(ctx, d, outbox.EventDisputeEscalated); err != nil {
			return nil, err
		}
		logger.Info("High-value dispute escalated for admin verification", "decision", string(in.Decision))
		return &dispute.Outcome{Dispute: d, Pending: true}, nil
	}

	return g.finalize(ctx, d, in.Decision, in.Percentage(), in.Resolution)
}

// ConfirmEscalation records an admin's sign-off on an escalated ruling
func (g *Engine) ConfirmEscalation(ctx context.Context, disputeID, adminID uuid.UUID) (*dispute.Dispute, error) {
	admin, err := g.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.UnauthorizedError{ActorID: adminID.String(), Action: "confirm escalation"}
		}
		return nil, err
	}
	rs := shared.RoleSet{}
	if admin.Active {
		rs.Add(admin.ID, admin.Role)
	}
	if err := shared.Authorize(rs, adminID, "confirm escalation", shared.RoleAdmin); err != nil {
		return nil, err
	}

	var d *dispute.Dispute
	err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := g.disputes.WithTx(tx)
		locked, err := repo.LockByID(ctx, disputeID)
		if err != nil {
			return err
		}
		if err := locked.Confirm(adminID, g.now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, locked); err != nil {
			return err
		}
		d = locked
		return g.events.Record(ctx, tx, outbox.EventDisputeConfirmed, outbox.AggregateDispute, d.ID, disputePayload(d))
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("Escalated dispute confirmed", "dispute_id", d.ID.String(), "admin", adminID.String())
	return d, nil
}

func (g *Engine) isHighValue(ctx context.Context, jobID uuid.UUID) (bool, error) {
	if g.cfg.HighValueThreshold <= 0 {
		return false, nil
	}
	e, err := g.escrows.GetByJob(ctx, jobID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Amount > g.cfg.HighValueThreshold, nil
}

// finalize moves the escrowed funds, closes the dispute and the job and applies the
// reputation penalties
func (g *Engine) finalize(ctx context.Context, d *dispute.Dispute, decision dispute.Decision, pct int, resolution string) (*dispute.Outcome, error) {
	logger := g.logger.With("dispute_id", d.ID.String(), "job_id", d.JobID.String(), "decision", string(decision))

	j, err := g.jobs.GetByID(ctx, d.JobID)
	if err != nil {
		return nil, err
	}
	if err := g.settleEscrow(ctx, d.JobID, decision, pct); err != nil {
		logger.Error("Failed to settle escrow for dispute", "error", err)
		return nil, err
	}

	jobStatus := job.StatusCompleted
	if decision == dispute.DecisionFavorEmployer {
		jobStatus = job.StatusCancelled
	}

	now := g.now()
	d.RecordDecision(decision, pct, resolution, now)
	if err := d.TransitionTo(dispute.StatusResolved, now); err != nil {
		return nil, err
	}
	err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.disputes.WithTx(tx).Update(ctx, d); err != nil {
			return err
		}
		if err := g.jobs.WithTx(tx).UpdateStatus(ctx, d.JobID, jobStatus); err != nil {
			return err
		}
		for userID, delta := range g.penalties(j, decision) {
			if err := g.users.WithTx(tx).AdjustTrustScore(ctx, userID, delta); err != nil {
				return err
			}
		}
		return g.events.Record(ctx, tx, outbox.EventDisputeResolved, outbox.AggregateDispute, d.ID, disputePayload(d))
	})
	if err != nil {
		logger.Error("Failed to persist dispute resolution", "error", err)
		return nil, err
	}

	if d.AssignedVerifier != nil {
		if err := g.counter.Decrement(ctx, *d.AssignedVerifier); err != nil {
			logger.Error("Failed to release arbitrator assignment", "verifier", d.AssignedVerifier.String(), "error", err)
		}
	}

	logger.Info("Dispute resolved", "payment_percentage", pct, "job_status", string(jobStatus))
	return &dispute.Outcome{Dispute: d}, nil
}

// settleEscrow applies the ruling to the job's escrow. An escrow already settled by an
// earlier attempt, or no escrow at all, counts as done.
func (g *Engine) settleEscrow(ctx context.Context, jobID uuid.UUID, decision dispute.Decision, pct int) error {
	e, err := g.escrows.GetByJob(ctx, jobID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if e.Status.IsTerminal() {
		return nil
	}

	res := escrow.Resolution{FavorWorker: decision != dispute.DecisionFavorEmployer, WorkerPercentage: pct}
	_, err = g.escrows.ResolveDispute(ctx, jobID, res)
	return err
}

// penalties returns the trust score change per job participant
func (g *Engine) penalties(j *job.Job, decision dispute.Decision) map[uuid.UUID]int {
	deltas := make(map[uuid.UUID]int)
	if j.WorkerID == nil {
		return deltas
	}
	switch decision {
	case dispute.DecisionFavorEmployer:
		deltas[*j.WorkerID] = -g.cfg.LoserPenalty
	case dispute.DecisionFavorWorker:
		deltas[j.EmployerID] = -g.cfg.LoserPenalty
	case dispute.DecisionPartialPayment:
		deltas[j.EmployerID] = -g.cfg.SharedPenalty
		deltas[*j.WorkerID] = -g.cfg.SharedPenalty
	}
	return deltas
}
