package user

import (
	"context"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is the subset of a platform account the money core needs
type User struct {
	ID         uuid.UUID   `json:"id"`
	Role       shared.Role `json:"role"`
	TrustScore int         `json:"trust_score"`
	Active     bool        `json:"active"`
}

// ErrUserNotFound returns the not-found error for a user
func ErrUserNotFound(id uuid.UUID) error {
	return shared.NotFoundError{Resource: "user", ID: id.String()}
}

// Repository defines user persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// ListByRole returns active users of the role in a stable order
	ListByRole(ctx context.Context, role shared.Role) ([]*User, error)

	// AdjustTrustScore adds delta to the score, never going below zero
	AdjustTrustScore(ctx context.Context, id uuid.UUID, delta int) error
	WithTx(tx pgx.Tx) Repository
}
