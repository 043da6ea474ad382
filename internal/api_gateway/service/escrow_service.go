package service

import (
	"context"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/google/uuid"
)

type EscrowServiceImpl struct {
	engine EscrowEngine
	jobs   JobReader
	logger *slog.Logger
}

func NewEscrowService(logger *slog.Logger, engine EscrowEngine, jobs JobReader) EscrowService {
	return &EscrowServiceImpl{engine: engine, jobs: jobs, logger: logger}
}

// Create funds an escrow for a job. Only the job's employer may open it and the
// employer's wallet is always the one charged.
func (s *EscrowServiceImpl) Create(ctx context.Context, actorID uuid.UUID, req escrow_engine.CreateRequest) (*escrow.Escrow, error) {
	j, err := s.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if err := shared.Authorize(j.Participants(), actorID, "create escrow", shared.RoleEmployer); err != nil {
		s.logger.Warn("Rejected escrow action", "action", "create escrow", "job_id", j.ID.String(), "actor", actorID.String())
		return nil, err
	}
	req.EmployerID = j.EmployerID
	return s.engine.Create(ctx, req)
}

func (s *EscrowServiceImpl) GetByID(ctx context.Context, actorID, escrowID uuid.UUID) (*escrow.Escrow, error) {
	e, err := s.engine.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := shared.Authorize(parties(e), actorID, "view escrow", shared.RoleEmployer, shared.RoleWorker); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EscrowServiceImpl) GetByJob(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error) {
	e, err := s.engine.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := shared.Authorize(parties(e), actorID, "view escrow", shared.RoleEmployer, shared.RoleWorker); err != nil {
		return nil, err
	}
	return e, nil
}

// AssignWorker points the escrow at the worker hired on the job; any other user is rejected
func (s *EscrowServiceImpl) AssignWorker(ctx context.Context, actorID, jobID, workerID uuid.UUID) (*escrow.Escrow, error) {
	if err := s.asEmployer(ctx, actorID, jobID, "assign escrow worker"); err != nil {
		return nil, err
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.WorkerID == nil || *j.WorkerID != workerID {
		return nil, shared.ValidationError{Field: "worker_id", Reason: "is not the worker hired on this job"}
	}
	return s.engine.AssignWorker(ctx, jobID, workerID)
}

func (s *EscrowServiceImpl) Release(ctx context.Context, actorID, jobID uuid.UUID, percentage int) (*escrow.Escrow, error) {
	if err := s.asEmployer(ctx, actorID, jobID, "release escrow"); err != nil {
		return nil, err
	}
	return s.engine.ReleasePartial(ctx, jobID, percentage)
}

func (s *EscrowServiceImpl) Complete(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error) {
	if err := s.asEmployer(ctx, actorID, jobID, "complete escrow"); err != nil {
		return nil, err
	}
	return s.engine.Complete(ctx, jobID)
}

func (s *EscrowServiceImpl) asEmployer(ctx context.Context, actorID, jobID uuid.UUID, action string) error {
	e, err := s.engine.GetByJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := shared.Authorize(parties(e), actorID, action, shared.RoleEmployer); err != nil {
		s.logger.Warn("Rejected escrow action", "action", action, "job_id", jobID.String(), "actor", actorID.String())
		return err
	}
	return nil
}

func parties(e *escrow.Escrow) shared.RoleSet {
	rs := shared.RoleSet{}
	rs.Add(e.EmployerID, shared.RoleEmployer)
	if e.WorkerID != nil {
		rs.Add(*e.WorkerID, shared.RoleWorker)
	}
	return rs
}
