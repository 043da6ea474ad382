package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const escrowColumns = `id, job_id, employer_id, worker_id, amount, platform_fee, held_amount, released_amount,
		release_count, status, hold_id, dispute_id, partial_payment_allowed, partial_payment_percentage,
		created_at, updated_at, funded_at, completed_at, version`

const (
	insertEscrowQuery = `
		INSERT INTO escrows (` + escrowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	getEscrowByIDQuery  = `SELECT ` + escrowColumns + ` FROM escrows WHERE id = $1`
	getEscrowByJobQuery = `SELECT ` + escrowColumns + ` FROM escrows WHERE job_id = $1`
	updateEscrowQuery   = `
		UPDATE escrows
		SET worker_id = $1, held_amount = $2, released_amount = $3, release_count = $4, status = $5,
			hold_id = $6, dispute_id = $7, updated_at = $8, funded_at = $9, completed_at = $10,
			version = version + 1
		WHERE id = $11 AND version = $12
	`
)

// EscrowRepository implements the escrow.Repository interface for PostgreSQL
type EscrowRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEscrowRepository creates a new PostgreSQL escrow repository
func NewEscrowRepository(logger *slog.Logger, db *persistence.PostgresDB) escrow.Repository {
	return &EscrowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *EscrowRepository) WithTx(tx pgx.Tx) escrow.Repository {
	return &EscrowRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new escrow. A job can carry only one escrow.
func (r *EscrowRepository) Create(ctx context.Context, e *escrow.Escrow) error {
	_, err := r.querier.Exec(ctx, insertEscrowQuery,
		e.ID,
		e.JobID,
		e.EmployerID,
		e.WorkerID,
		e.Amount,
		e.PlatformFee,
		e.HeldAmount,
		e.ReleasedAmount,
		e.ReleaseCount,
		e.Status,
		e.HoldID,
		e.DisputeID,
		e.PartialPaymentAllowed,
		e.PartialPaymentPercentage,
		e.CreatedAt,
		e.UpdatedAt,
		e.FundedAt,
		e.CompletedAt,
		e.Version,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, "escrows_job_id_key") {
			return escrow.ErrDuplicateEscrow{JobID: e.JobID}
		}
		r.logger.Error("Failed to create escrow", "job_id", e.JobID.String(), "error", err)
		return fmt.Errorf("failed to create escrow: %w", err)
	}
	return nil
}

func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	return r.get(ctx, getEscrowByIDQuery, id)
}

func (r *EscrowRepository) GetByJob(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	return r.get(ctx, getEscrowByJobQuery, jobID)
}

func (r *EscrowRepository) get(ctx context.Context, query string, key uuid.UUID) (*escrow.Escrow, error) {
	var e escrow.Escrow
	err := r.querier.QueryRow(ctx, query, key).Scan(
		&e.ID,
		&e.JobID,
		&e.EmployerID,
		&e.WorkerID,
		&e.Amount,
		&e.PlatformFee,
		&e.HeldAmount,
		&e.ReleasedAmount,
		&e.ReleaseCount,
		&e.Status,
		&e.HoldID,
		&e.DisputeID,
		&e.PartialPaymentAllowed,
		&e.PartialPaymentPercentage,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.FundedAt,
		&e.CompletedAt,
		&e.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrEscrowNotFound(key)
		}
		r.logger.Error("Failed to get escrow", "key", key.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}
	return &e, nil
}

// Update persists the escrow's mutable bookkeeping and status if the row is still at
// e.Version, and advances e.Version. A row changed since e was read fails with ErrStaleEscrow.
func (r *EscrowRepository) Update(ctx context.Context, e *escrow.Escrow) error {
	result, err := r.querier.Exec(ctx, updateEscrowQuery,
		e.WorkerID,
		e.HeldAmount,
		e.ReleasedAmount,
		e.ReleaseCount,
		e.Status,
		e.HoldID,
		e.DisputeID,
		e.UpdatedAt,
		e.FundedAt,
		e.CompletedAt,
		e.ID,
		e.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update escrow", "id", e.ID.String(), "status", e.Status, "error", err)
		return fmt.Errorf("failed to update escrow: %w", err)
	}
	if result.RowsAffected() == 0 {
		// rows are never deleted, so a miss means another writer got there first
		return escrow.ErrStaleEscrow{EscrowID: e.ID, Version: e.Version}
	}
	e.Version++
	return nil
}
