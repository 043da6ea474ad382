package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	getAssignmentCountQuery       = `SELECT open_count FROM verifier_assignment_counts WHERE user_id = $1`
	incrementAssignmentCountQuery = `
		INSERT INTO verifier_assignment_counts (user_id, open_count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET open_count = verifier_assignment_counts.open_count + 1, updated_at = NOW()
	`
	decrementAssignmentCountQuery = `
		UPDATE verifier_assignment_counts
		SET open_count = GREATEST(open_count - 1, 0), updated_at = NOW()
		WHERE user_id = $1
	`
)

// AssignmentCounter is the durable arbitrator load counter backed by verifier_assignment_counts
type AssignmentCounter struct {
	querier persistence.Querier
	logger  *slog.Logger
}

var _ dispute.AssignmentCounter = (*AssignmentCounter)(nil)

// NewAssignmentCounter creates the table-backed assignment counter
func NewAssignmentCounter(logger *slog.Logger, db *persistence.PostgresDB) *AssignmentCounter {
	return &AssignmentCounter{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Count returns the user's open assignments; a missing row counts as zero
func (c *AssignmentCounter) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := c.querier.QueryRow(ctx, getAssignmentCountQuery, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		c.logger.Error("Failed to read assignment count", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to read assignment count: %w", err)
	}
	return count, nil
}

func (c *AssignmentCounter) Increment(ctx context.Context, userID uuid.UUID) error {
	if _, err := c.querier.Exec(ctx, incrementAssignmentCountQuery, userID); err != nil {
		c.logger.Error("Failed to increment assignment count", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to increment assignment count: %w", err)
	}
	return nil
}

func (c *AssignmentCounter) Decrement(ctx context.Context, userID uuid.UUID) error {
	if _, err := c.querier.Exec(ctx, decrementAssignmentCountQuery, userID); err != nil {
		c.logger.Error("Failed to decrement assignment count", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to decrement assignment count: %w", err)
	}
	return nil
}
