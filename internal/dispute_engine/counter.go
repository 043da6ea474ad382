package dispute_engine

import (
	"context"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/google/uuid"
)

// FallbackCounter reads assignment counts from the fast counter and falls back to the
// durable one when the fast counter errors. Writes always land in the durable counter;
// the fast counter is updated best-effort.
type FallbackCounter struct {
	fast    dispute.AssignmentCounter
	durable dispute.AssignmentCounter
	logger  *slog.Logger
}

var _ dispute.AssignmentCounter = (*FallbackCounter)(nil)

// NewFallbackCounter composes the two counters. fast may be nil when no cache is configured.
func NewFallbackCounter(logger *slog.Logger, fast, durable dispute.AssignmentCounter) *FallbackCounter {
	return &FallbackCounter{fast: fast, durable: durable, logger: logger}
}

func (c *FallbackCounter) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	if c.fast != nil {
		n, err := c.fast.Count(ctx, userID)
		if err == nil {
			return n, nil
		}
		c.logger.Warn("Fast assignment counter unavailable, reading durable count", "user_id", userID.String(), "error", err)
	}
	return c.durable.Count(ctx, userID)
}

func (c *FallbackCounter) Increment(ctx context.Context, userID uuid.UUID) error {
	if err := c.durable.Increment(ctx, userID); err != nil {
		return err
	}
	if c.fast != nil {
		if err := c.fast.Increment(ctx, userID); err != nil {
			c.logger.Warn("Fast assignment counter increment failed", "user_id", userID.String(), "error", err)
		}
	}
	return nil
}

func (c *FallbackCounter) Decrement(ctx context.Context, userID uuid.UUID) error {
	if err := c.durable.Decrement(ctx, userID); err != nil {
		return err
	}
	if c.fast != nil {
		if err := c.fast.Decrement(ctx, userID); err != nil {
			c.logger.Warn("Fast assignment counter decrement failed", "user_id", userID.String(), "error", err)
		}
	}
	return nil
}
