package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines escrow persistence operations
type Repository interface {
	// Create fails with ErrDuplicateEscrow when the job already has an escrow
	Create(ctx context.Context, e *Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*Escrow, error)
	GetByJob(ctx context.Context, jobID uuid.UUID) (*Escrow, error)
	Update(ctx context.Context, e *Escrow) error
	WithTx(tx pgx.Tx) Repository
}

// StateCache is a read-through cache of escrow status keyed by job. Misses return ok=false.
type StateCache interface {
	Get(ctx context.Context, jobID uuid.UUID) (status Status, ok bool, err error)
	Set(ctx context.Context, jobID uuid.UUID, status Status, ttl time.Duration) error
	Invalidate(ctx context.Context, jobID uuid.UUID) error
}
