package memory

import (
	"context"
	"sync"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/google/uuid"
)

// AssignmentCounter is the in-memory dispute.AssignmentCounter. It sits outside
// Store transactions, like the Redis and table counters it stands in for.
type AssignmentCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

var _ dispute.AssignmentCounter = (*AssignmentCounter)(nil)

func NewAssignmentCounter() *AssignmentCounter {
	return &AssignmentCounter{counts: make(map[uuid.UUID]int64)}
}

func (c *AssignmentCounter) Count(_ context.Context, userID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID], nil
}

func (c *AssignmentCounter) Increment(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID]++
	return nil
}

// Decrement floors at zero
func (c *AssignmentCounter) Decrement(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[userID] > 0 {
		c.counts[userID]--
	}
	return nil
}
