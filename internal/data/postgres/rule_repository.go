package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const (
	findFeeTierQuery = `
		SELECT id, transaction_type, min_amount, max_amount, fee_type, fee_value
		FROM transaction_fees
		WHERE transaction_type = $1 AND is_active AND min_amount <= $2 AND max_amount >= $2
		ORDER BY min_amount DESC
		LIMIT 1
	`
	findLimitRuleQuery = `
		SELECT tier, transaction_type, per_transaction_limit, daily_limit, monthly_limit
		FROM wallet_limits
		WHERE tier = $1 AND transaction_type = $2 AND is_active
	`
)

// RuleRepository reads fee tiers and limit rules from PostgreSQL
type RuleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRuleRepository creates a new PostgreSQL rule repository
func NewRuleRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.RuleRepository {
	return &RuleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// FindFeeTier returns the narrowest active tier covering amount, or nil when none does
func (r *RuleRepository) FindFeeTier(ctx context.Context, txType shared.TransactionType, amount int64) (*wallet.FeeTier, error) {
	var tier wallet.FeeTier
	err := r.querier.QueryRow(ctx, findFeeTierQuery, txType, amount).Scan(
		&tier.ID,
		&tier.TransactionType,
		&tier.MinAmount,
		&tier.MaxAmount,
		&tier.FeeType,
		&tier.Value,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find fee tier", "type", txType, "amount", amount, "error", err)
		return nil, fmt.Errorf("failed to find fee tier: %w", err)
	}
	return &tier, nil
}

// FindLimitRule returns the active rule for tier and type, or nil when the type is unlimited
func (r *RuleRepository) FindLimitRule(ctx context.Context, tier string, txType shared.TransactionType) (*wallet.LimitRule, error) {
	var rule wallet.LimitRule
	err := r.querier.QueryRow(ctx, findLimitRuleQuery, tier, txType).Scan(
		&rule.Tier,
		&rule.TransactionType,
		&rule.PerTransactionLimit,
		&rule.DailyLimit,
		&rule.MonthlyLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find limit rule", "tier", tier, "type", txType, "error", err)
		return nil, fmt.Errorf("failed to find limit rule: %w", err)
	}
	return &rule, nil
}
