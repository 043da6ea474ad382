package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages the append-only audit trail
type Repository interface {
	// Create fails with ErrDuplicateEntry if the event was already projected
	Create(ctx context.Context, entry *Entry) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Entry, error)
	ListByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (int64, error)
	ListNeedingReview(ctx context.Context, limit, offset int) ([]*Entry, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates missing audit entry
type ErrEntryNotFound struct {
	EventID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}

// ErrDuplicateEntry indicates the event was already projected
type ErrDuplicateEntry struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
