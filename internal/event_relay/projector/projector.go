// Package projector consumes the events topic and projects every event into the audit trail.
package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/audit"
	"github.com/escrow-ledger/internal/domain/outbox"
)

// Projector applies one event to a read model
type Projector interface {
	Project(ctx context.Context, env outbox.Envelope) error
}

// AuditProjector appends events to the audit trail. Redelivered events are ignored.
type AuditProjector struct {
	entries audit.Repository
	logger  *slog.Logger
}

func NewAuditProjector(entries audit.Repository, logger *slog.Logger) *AuditProjector {
	return &AuditProjector{entries: entries, logger: logger}
}

func (p *AuditProjector) Project(ctx context.Context, env outbox.Envelope) error {
	logger := p.logger.With("event_id", env.EventID.String(), "event_type", env.EventType)

	entry, err := audit.FromEnvelope(env)
	if err != nil {
		return fmt.Errorf("decode event %s payload: %w", env.EventID, err)
	}

	if err := p.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, audit.ErrDuplicateEntry{}) {
			logger.Debug("Event already projected")
			return nil
		}
		return fmt.Errorf("store audit entry for event %s: %w", env.EventID, err)
	}

	if entry.NeedsReview {
		logger.Warn("Event flagged for manual review",
			"aggregate_type", env.AggregateType,
			"aggregate_id", env.AggregateID.String(),
			"reference", entry.Reference,
			"amount", entry.Amount,
		)
	}
	return nil
}
