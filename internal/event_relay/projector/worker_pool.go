package projector

import (
	"context"
	"log/slog"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProjector bounds how many projections run at once
type WorkerPoolProjector struct {
	base   Projector
	pool   *ants.Pool
	logger *slog.Logger
}

func NewWorkerPoolProjector(base Projector, cfg *config.WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolProjector, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}
	return &WorkerPoolProjector{base: base, pool: pool, logger: logger}, nil
}

// Project runs the projection on a pool worker and waits for its result
func (s *WorkerPoolProjector) Project(ctx context.Context, env outbox.Envelope) error {
	resultChan := make(chan error, 1)

	err := s.pool.Submit(func() {
		resultChan <- s.base.Project(ctx, env)
	})
	if err != nil {
		s.logger.Error("Failed to submit event to worker pool",
			"event_id", env.EventID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool's workers
func (s *WorkerPoolProjector) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolProjector) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProjector) Capacity() int {
	return s.pool.Cap()
}
