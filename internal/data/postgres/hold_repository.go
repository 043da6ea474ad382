package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const holdColumns = `id, wallet_id, job_id, amount, reason, status, created_at, expires_at, released_at`

const (
	insertHoldQuery = `
		INSERT INTO wallet_holds (` + holdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	getHoldQuery        = `SELECT ` + holdColumns + ` FROM wallet_holds WHERE id = $1`
	lockHoldQuery       = `SELECT ` + holdColumns + ` FROM wallet_holds WHERE id = $1 FOR UPDATE`
	updateHoldQuery     = `UPDATE wallet_holds SET status = $1, released_at = $2 WHERE id = $3`
	listExpiredQuery    = `
		SELECT ` + holdColumns + `
		FROM wallet_holds
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3
	`
	countActiveHoldsQuery = `SELECT COUNT(*) FROM wallet_holds WHERE wallet_id = $1 AND status = $2`
)

// HoldRepository implements the wallet.HoldRepository interface for PostgreSQL
type HoldRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewHoldRepository creates a new PostgreSQL hold repository
func NewHoldRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.HoldRepository {
	return &HoldRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *HoldRepository) WithTx(tx pgx.Tx) wallet.HoldRepository {
	return &HoldRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *HoldRepository) Create(ctx context.Context, h *wallet.Hold) error {
	_, err := r.querier.Exec(ctx, insertHoldQuery,
		h.ID,
		h.WalletID,
		h.JobID,
		h.Amount,
		h.Reason,
		h.Status,
		h.CreatedAt,
		h.ExpiresAt,
		h.ReleasedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create hold", "wallet_id", h.WalletID.String(), "amount", h.Amount, "error", err)
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Hold, error) {
	return r.get(ctx, getHoldQuery, id)
}

// LockByID re-reads the hold under a row lock
func (r *HoldRepository) LockByID(ctx context.Context, id uuid.UUID) (*wallet.Hold, error) {
	return r.get(ctx, lockHoldQuery, id)
}

func (r *HoldRepository) get(ctx context.Context, query string, id uuid.UUID) (*wallet.Hold, error) {
	h, err := scanHold(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrHoldNotFound(id)
		}
		r.logger.Error("Failed to get hold", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return h, nil
}

// UpdateStatus persists the hold's status and release time
func (r *HoldRepository) UpdateStatus(ctx context.Context, h *wallet.Hold) error {
	result, err := r.querier.Exec(ctx, updateHoldQuery, h.Status, h.ReleasedAt, h.ID)
	if err != nil {
		r.logger.Error("Failed to update hold status", "id", h.ID.String(), "status", h.Status, "error", err)
		return fmt.Errorf("failed to update hold status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return wallet.ErrHoldNotFound(h.ID)
	}
	return nil
}

// ListExpired returns active holds whose expiry is at or before the cut-off, oldest first
func (r *HoldRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*wallet.Hold, error) {
	rows, err := r.querier.Query(ctx, listExpiredQuery, wallet.HoldStatusActive, before, limit)
	if err != nil {
		r.logger.Error("Failed to list expired holds", "error", err)
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	defer rows.Close()

	var holds []*wallet.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold row: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hold rows: %w", err)
	}
	return holds, nil
}

func (r *HoldRepository) CountActive(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, countActiveHoldsQuery, walletID, wallet.HoldStatusActive).Scan(&count); err != nil {
		r.logger.Error("Failed to count active holds", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count active holds: %w", err)
	}
	return count, nil
}

func scanHold(row pgx.Row) (*wallet.Hold, error) {
	var h wallet.Hold
	err := row.Scan(
		&h.ID,
		&h.WalletID,
		&h.JobID,
		&h.Amount,
		&h.Reason,
		&h.Status,
		&h.CreatedAt,
		&h.ExpiresAt,
		&h.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
