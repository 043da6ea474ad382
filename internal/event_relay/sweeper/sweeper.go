// Package sweeper returns funds held past their expiry to the owning wallet.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/wallet_ledger"
)

// HoldExpirer expires at most limit holds that ran out before now
type HoldExpirer interface {
	ExpireHolds(ctx context.Context, now time.Time, limit int) (int, error)
}

var _ HoldExpirer = (*wallet_ledger.Ledger)(nil)

type Sweeper struct {
	holds    HoldExpirer
	logger   *slog.Logger
	interval time.Duration
	batch    int
	now      func() time.Time
}

func New(cfg *config.LedgerConfig, holds HoldExpirer, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		holds:    holds,
		logger:   logger,
		interval: cfg.HoldSweepInterval,
		batch:    cfg.HoldSweepBatch,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start sweeps on every tick until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting hold sweeper", "interval", s.interval.String(), "batch", s.batch)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Hold sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if n := s.sweep(ctx); n > 0 {
				s.logger.Info("Expired holds released", "count", n)
			}
		}
	}
}

// sweep drains expired holds batch by batch. It stops on an error or a short batch
// so a hold that keeps failing cannot spin the loop.
func (s *Sweeper) sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := s.holds.ExpireHolds(ctx, s.now(), s.batch)
		total += n
		if err != nil {
			s.logger.Error("Failed to expire holds", "expired", n, "error", err)
			return total
		}
		if n < s.batch {
			return total
		}
	}
	return total
}
