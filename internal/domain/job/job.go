package job

import (
	"context"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Status defines job lifecycle states
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusDisputed   Status = "disputed"
	StatusCancelled  Status = "cancelled"
)

// Disputable reports whether a dispute may be raised in this status
func (s Status) Disputable() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusReview
}

// Job is a unit of work between an employer and a worker
type Job struct {
	ID         uuid.UUID  `json:"id"`
	EmployerID uuid.UUID  `json:"employer_id"`
	WorkerID   *uuid.UUID `json:"worker_id,omitempty"`
	Title      string     `json:"title"`
	Budget     int64      `json:"budget"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Participants returns the job's role set
func (j *Job) Participants() shared.RoleSet {
	rs := shared.RoleSet{}
	rs.Add(j.EmployerID, shared.RoleEmployer)
	if j.WorkerID != nil {
		rs.Add(*j.WorkerID, shared.RoleWorker)
	}
	return rs
}

// CounterpartOf returns the other participant, or uuid.Nil if userID is not a participant
func (j *Job) CounterpartOf(userID uuid.UUID) uuid.UUID {
	if j.WorkerID == nil {
		return uuid.Nil
	}
	switch userID {
	case j.EmployerID:
		return *j.WorkerID
	case *j.WorkerID:
		return j.EmployerID
	}
	return uuid.Nil
}

// ErrJobNotFound returns the not-found error for a job
func ErrJobNotFound(id uuid.UUID) error {
	return shared.NotFoundError{Resource: "job", ID: id.String()}
}

// Repository defines job persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}
