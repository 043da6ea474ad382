package dispute

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines dispute persistence operations
type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error)

	// LockByID acquires a row lock on the dispute for the rest of the transaction
	LockByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	Update(ctx context.Context, d *Dispute) error

	// OpenCountsByVerifier returns, for each given user, how many unresolved disputes they are assigned
	OpenCountsByVerifier(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ListPendingForVerifier(ctx context.Context, verifierID uuid.UUID) ([]*Dispute, error)
	WithTx(tx pgx.Tx) Repository
}

// AssignmentCounter tracks open assignments per arbitrator.
// Implementations must report an absent key as zero.
type AssignmentCounter interface {
	Count(ctx context.Context, userID uuid.UUID) (int64, error)
	Increment(ctx context.Context, userID uuid.UUID) error
	Decrement(ctx context.Context, userID uuid.UUID) error
}
