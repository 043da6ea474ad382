package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EscrowStateCache mirrors escrow status per job. The escrows table stays authoritative.
type EscrowStateCache struct {
	client *redis.Client
	prefix string
}

var _ escrow.StateCache = (*EscrowStateCache)(nil)

// NewEscrowStateCache creates a cache with keys "<prefix>:escrow_state:<job id>"
func NewEscrowStateCache(client *redis.Client, prefix string) *EscrowStateCache {
	return &EscrowStateCache{client: client, prefix: prefix + ":escrow_state:"}
}

func (c *EscrowStateCache) Get(ctx context.Context, jobID uuid.UUID) (escrow.Status, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+jobID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read escrow state: %w", err)
	}
	return escrow.Status(v), true, nil
}

func (c *EscrowStateCache) Set(ctx context.Context, jobID uuid.UUID, status escrow.Status, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+jobID.String(), string(status), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache escrow state: %w", err)
	}
	return nil
}

func (c *EscrowStateCache) Invalidate(ctx context.Context, jobID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+jobID.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate escrow state: %w", err)
	}
	return nil
}
