package service

import (
	"context"
	"log/slog"

	"github.com/escrow-ledger/internal/dispute_engine"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

type DisputeServiceImpl struct {
	engine DisputeEngine
	logger *slog.Logger
}

func NewDisputeService(logger *slog.Logger, engine DisputeEngine) DisputeService {
	return &DisputeServiceImpl{engine: engine, logger: logger}
}

func (s *DisputeServiceImpl) Create(ctx context.Context, actorID uuid.UUID, req dispute_engine.CreateRequest) (*dispute.Dispute, error) {
	req.RaisedBy = actorID
	return s.engine.Create(ctx, req)
}

// GetByID is visible to both parties, the assigned verifier and the confirming admin
func (s *DisputeServiceImpl) GetByID(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error) {
	d, err := s.engine.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !canView(d, actorID) {
		return nil, shared.UnauthorizedError{ActorID: actorID.String(), Action: "view dispute " + d.ID.String()}
	}
	return d, nil
}

func (s *DisputeServiceImpl) Resolve(ctx context.Context, actorID, disputeID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error) {
	return s.engine.Resolve(ctx, disputeID, actorID, in)
}

func (s *DisputeServiceImpl) ConfirmEscalation(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error) {
	return s.engine.ConfirmEscalation(ctx, disputeID, actorID)
}

func (s *DisputeServiceImpl) GetPending(ctx context.Context, actorID uuid.UUID) ([]*dispute.Dispute, error) {
	return s.engine.GetPendingForVerifier(ctx, actorID)
}

func canView(d *dispute.Dispute, actorID uuid.UUID) bool {
	if actorID == uuid.Nil {
		return false
	}
	if actorID == d.RaisedBy || actorID == d.Against {
		return true
	}
	if d.AssignedVerifier != nil && *d.AssignedVerifier == actorID {
		return true
	}
	return d.EscalationAdmin != nil && *d.EscalationAdmin == actorID
}
