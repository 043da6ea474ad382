package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/user"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	getUserQuery         = `SELECT id, role, trust_score, active FROM users WHERE id = $1`
	listUsersByRoleQuery = `
		SELECT id, role, trust_score, active
		FROM users
		WHERE role = $1 AND active
		ORDER BY created_at ASC, id ASC
	`
	adjustTrustScoreQuery = `UPDATE users SET trust_score = GREATEST(trust_score + $1, 0) WHERE id = $2`
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	err := r.querier.QueryRow(ctx, getUserQuery, id).Scan(&u.ID, &u.Role, &u.TrustScore, &u.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound(id)
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListByRole returns active users holding role, oldest account first
func (r *UserRepository) ListByRole(ctx context.Context, role shared.Role) ([]*user.User, error) {
	rows, err := r.querier.Query(ctx, listUsersByRoleQuery, role)
	if err != nil {
		r.logger.Error("Failed to list users by role", "role", role, "error", err)
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Role, &u.TrustScore, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// AdjustTrustScore adds delta to the user's score, flooring at zero
func (r *UserRepository) AdjustTrustScore(ctx context.Context, id uuid.UUID, delta int) error {
	result, err := r.querier.Exec(ctx, adjustTrustScoreQuery, delta, id)
	if err != nil {
		r.logger.Error("Failed to adjust trust score", "id", id.String(), "delta", delta, "error", err)
		return fmt.Errorf("failed to adjust trust score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound(id)
	}
	return nil
}
