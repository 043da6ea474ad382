package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const disputeColumns = `id, job_id, raised_by, against, reason, description, evidence, status, assigned_verifier,
		resolution, decision, payment_percentage, escalation_admin, escalated_at, confirmed_at,
		created_at, updated_at, resolved_at`

const (
	insertDisputeQuery = `
		INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	getDisputeQuery    = `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	lockDisputeQuery   = `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	updateDisputeQuery = `
		UPDATE disputes
		SET status = $1, assigned_verifier = $2, resolution = $3, decision = $4, payment_percentage = $5,
			escalation_admin = $6, escalated_at = $7, confirmed_at = $8, updated_at = $9, resolved_at = $10
		WHERE id = $11
	`
	openCountsByVerifierQuery = `
		SELECT assigned_verifier, COUNT(*)
		FROM disputes
		WHERE assigned_verifier = ANY($1::uuid[]) AND status <> $2
		GROUP BY assigned_verifier
	`
	listPendingForVerifierQuery = `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE assigned_verifier = $1 AND status IN ($2, $3)
		ORDER BY created_at ASC
	`
)

// DisputeRepository implements the dispute.Repository interface for PostgreSQL
type DisputeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDisputeRepository creates a new PostgreSQL dispute repository
func NewDisputeRepository(logger *slog.Logger, db *persistence.PostgresDB) dispute.Repository {
	return &DisputeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *DisputeRepository) WithTx(tx pgx.Tx) dispute.Repository {
	return &DisputeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	evidence := d.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	_, err := r.querier.Exec(ctx, insertDisputeQuery,
		d.ID,
		d.JobID,
		d.RaisedBy,
		d.Against,
		d.Reason,
		d.Description,
		evidence,
		d.Status,
		d.AssignedVerifier,
		d.Resolution,
		d.Decision,
		d.PaymentPercentage,
		d.EscalationAdmin,
		d.EscalatedAt,
		d.ConfirmedAt,
		d.CreatedAt,
		d.UpdatedAt,
		d.ResolvedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create dispute", "job_id", d.JobID.String(), "error", err)
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	return r.get(ctx, getDisputeQuery, id)
}

// LockByID reads the dispute under a row lock so concurrent resolutions serialise
func (r *DisputeRepository) LockByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	return r.get(ctx, lockDisputeQuery, id)
}

func (r *DisputeRepository) get(ctx context.Context, query string, id uuid.UUID) (*dispute.Dispute, error) {
	d, err := scanDispute(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dispute.ErrDisputeNotFound(id)
		}
		r.logger.Error("Failed to get dispute", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return d, nil
}

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	result, err := r.querier.Exec(ctx, updateDisputeQuery,
		d.Status,
		d.AssignedVerifier,
		d.Resolution,
		d.Decision,
		d.PaymentPercentage,
		d.EscalationAdmin,
		d.EscalatedAt,
		d.ConfirmedAt,
		d.UpdatedAt,
		d.ResolvedAt,
		d.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update dispute", "id", d.ID.String(), "status", d.Status, "error", err)
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	if result.RowsAffected() == 0 {
		return dispute.ErrDisputeNotFound(d.ID)
	}
	return nil
}

// OpenCountsByVerifier counts unresolved disputes per assigned user. Users without any are absent from the map.
func (r *DisputeRepository) OpenCountsByVerifier(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	rows, err := r.querier.Query(ctx, openCountsByVerifierQuery, ids, dispute.StatusResolved)
	if err != nil {
		r.logger.Error("Failed to count open disputes", "error", err)
		return nil, fmt.Errorf("failed to count open disputes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID uuid.UUID
			count  int64
		)
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan open dispute count: %w", err)
		}
		counts[userID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open dispute counts: %w", err)
	}
	return counts, nil
}

// ListPendingForVerifier returns disputes awaiting the verifier, oldest first
func (r *DisputeRepository) ListPendingForVerifier(ctx context.Context, verifierID uuid.UUID) ([]*dispute.Dispute, error) {
	rows, err := r.querier.Query(ctx, listPendingForVerifierQuery, verifierID, dispute.StatusUnderReview, dispute.StatusEscalated)
	if err != nil {
		r.logger.Error("Failed to list pending disputes", "verifier_id", verifierID.String(), "error", err)
		return nil, fmt.Errorf("failed to list pending disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*dispute.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispute rows: %w", err)
	}
	return disputes, nil
}

func scanDispute(row pgx.Row) (*dispute.Dispute, error) {
	var d dispute.Dispute
	err := row.Scan(
		&d.ID,
		&d.JobID,
		&d.RaisedBy,
		&d.Against,
		&d.Reason,
		&d.Description,
		&d.Evidence,
		&d.Status,
		&d.AssignedVerifier,
		&d.Resolution,
		&d.Decision,
		&d.PaymentPercentage,
		&d.EscalationAdmin,
		&d.EscalatedAt,
		&d.ConfirmedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
