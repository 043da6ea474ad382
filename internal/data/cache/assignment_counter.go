// Package cache holds the Redis-backed fast paths: the arbitrator assignment
// counter and the escrow status read-through cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// decrementFloorScript decrements a hash field without letting it go negative
var decrementFloorScript = redis.NewScript(`
local v = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if v < 0 then
	redis.call('HSET', KEYS[1], ARGV[1], 0)
	return 0
end
return v
`)

// AssignmentCounter keeps open arbitrator assignments in one Redis hash keyed by user id
type AssignmentCounter struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

var _ dispute.AssignmentCounter = (*AssignmentCounter)(nil)

// NewAssignmentCounter creates a counter stored under "<prefix>:verifier_assignments"
func NewAssignmentCounter(logger *slog.Logger, client *redis.Client, prefix string) *AssignmentCounter {
	return &AssignmentCounter{
		client: client,
		key:    prefix + ":verifier_assignments",
		logger: logger,
	}
}

// Count returns the user's open assignments. An absent field is zero.
func (c *AssignmentCounter) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := c.client.HGet(ctx, c.key, userID.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read assignment count: %w", err)
	}
	return n, nil
}

func (c *AssignmentCounter) Increment(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.HIncrBy(ctx, c.key, userID.String(), 1).Err(); err != nil {
		return fmt.Errorf("failed to increment assignment count: %w", err)
	}
	return nil
}

func (c *AssignmentCounter) Decrement(ctx context.Context, userID uuid.UUID) error {
	if err := decrementFloorScript.Run(ctx, c.client, []string{c.key}, userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to decrement assignment count: %w", err)
	}
	return nil
}
