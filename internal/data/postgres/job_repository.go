package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	getJobQuery = `
		SELECT id, employer_id, worker_id, title, budget, status, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	updateJobStatusQuery = `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`
)

// JobRepository reads jobs and moves their status for the money core
type JobRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(logger *slog.Logger, db *persistence.PostgresDB) job.Repository {
	return &JobRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *JobRepository) WithTx(tx pgx.Tx) job.Repository {
	return &JobRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var j job.Job
	err := r.querier.QueryRow(ctx, getJobQuery, id).Scan(
		&j.ID,
		&j.EmployerID,
		&j.WorkerID,
		&j.Title,
		&j.Budget,
		&j.Status,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, job.ErrJobNotFound(id)
		}
		r.logger.Error("Failed to get job", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status job.Status) error {
	result, err := r.querier.Exec(ctx, updateJobStatusQuery, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update job status", "id", id.String(), "status", status, "error", err)
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return job.ErrJobNotFound(id)
	}
	return nil
}
