package handler

import (
	"time"

	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amounts travel in minor units. The *_display fields carry the major-unit rendering.
const minorUnitExponent = -2

func displayAmount(minor int64) string {
	return decimal.New(minor, minorUnitExponent).StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatUUIDPtr(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// CreateWalletRequest opens a wallet for the acting user
type CreateWalletRequest struct {
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

// MoneyMovementRequest funds or withdraws from the acting user's wallet.
// A missing reference is generated; resending the same reference replays the first result.
type MoneyMovementRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference,omitempty"`
}

// TransferRequest moves funds from the acting user to another wallet owner
type TransferRequest struct {
	RecipientID string `json:"recipient_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Reference   string `json:"reference,omitempty"`
	Description string `json:"description,omitempty"`
}

// FeeQuoteQuery asks for the fee on a prospective transaction
type FeeQuoteQuery struct {
	Type   string `form:"type" binding:"required"`
	Amount int64  `form:"amount" binding:"required,gt=0"`
}

// TransactionListQuery filters the acting user's transaction history
type TransactionListQuery struct {
	PaginationParams
	Type   string `form:"type"`
	Status string `form:"status"`
	JobID  string `form:"job_id" binding:"omitempty,uuid"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

type WalletResponse struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Balance          int64  `json:"balance"`
	AvailableBalance int64  `json:"available_balance"`
	Currency         string `json:"currency"`
	Tier             string `json:"tier"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

type BalanceResponse struct {
	OwnerID          string `json:"owner_id"`
	Balance          int64  `json:"balance"`
	AvailableBalance int64  `json:"available_balance"`
	Held             int64  `json:"held"`
	Currency         string `json:"currency"`
	BalanceDisplay   string `json:"balance_display"`
	AvailableDisplay string `json:"available_display"`
}

type SummaryResponse struct {
	BalanceResponse
	TotalDeposits       int64 `json:"total_deposits"`
	TotalWithdrawals    int64 `json:"total_withdrawals"`
	PendingTransactions int64 `json:"pending_transactions"`
	ActiveHolds         int64 `json:"active_holds"`
}

type TransactionResponse struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Amount            int64  `json:"amount"`
	AmountDisplay     string `json:"amount_display"`
	BalanceBefore     int64  `json:"balance_before"`
	BalanceAfter      int64  `json:"balance_after"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	ExternalReference string `json:"external_reference,omitempty"`
	Description       string `json:"description,omitempty"`
	JobID             string `json:"job_id,omitempty"`
	EscrowID          string `json:"escrow_id,omitempty"`
	FeeAmount         int64  `json:"fee_amount"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

type TransferResponse struct {
	Debit  TransactionResponse `json:"debit"`
	Credit TransactionResponse `json:"credit"`
	Fee    int64               `json:"fee"`
}

type FeeQuoteResponse struct {
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Fee          int64  `json:"fee"`
	Total        int64  `json:"total"`
	TotalDisplay string `json:"total_display"`
}

// CreateEscrowRequest funds an escrow for a job on behalf of the acting employer.
// PlatformFee overrides the fee computed from the job_payment fee tiers.
type CreateEscrowRequest struct {
	JobID                    string `json:"job_id" binding:"required,uuid"`
	Amount                   int64  `json:"amount" binding:"required,gt=0"`
	PlatformFee              *int64 `json:"platform_fee,omitempty" binding:"omitempty,min=0"`
	PartialPaymentAllowed    bool   `json:"partial_payment_allowed"`
	PartialPaymentPercentage int    `json:"partial_payment_percentage" binding:"min=0,max=100"`
}

type AssignWorkerRequest struct {
	WorkerID string `json:"worker_id" binding:"required,uuid"`
}

// ReleaseRequest releases part of an escrow. Zero uses the escrow's configured percentage.
type ReleaseRequest struct {
	Percentage int `json:"percentage" binding:"min=0,max=100"`
}

type EscrowResponse struct {
	ID                       string `json:"id"`
	JobID                    string `json:"job_id"`
	EmployerID               string `json:"employer_id"`
	WorkerID                 string `json:"worker_id,omitempty"`
	Amount                   int64  `json:"amount"`
	PlatformFee              int64  `json:"platform_fee"`
	HeldAmount               int64  `json:"held_amount"`
	ReleasedAmount           int64  `json:"released_amount"`
	AmountDisplay            string `json:"amount_display"`
	Status                   string `json:"status"`
	DisputeID                string `json:"dispute_id,omitempty"`
	PartialPaymentAllowed    bool   `json:"partial_payment_allowed"`
	PartialPaymentPercentage int    `json:"partial_payment_percentage"`
	CreatedAt                string `json:"created_at"`
	FundedAt                 string `json:"funded_at,omitempty"`
	CompletedAt              string `json:"completed_at,omitempty"`
}

type CreateDisputeRequest struct {
	JobID       string   `json:"job_id" binding:"required,uuid"`
	Reason      string   `json:"reason" binding:"required"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
}

type ResolveDisputeRequest struct {
	Decision          string `json:"decision" binding:"required,oneof=favor_employer favor_worker partial_payment"`
	PaymentPercentage *int   `json:"payment_percentage,omitempty" binding:"omitempty,min=0,max=100"`
	Resolution        string `json:"resolution"`
}

type DisputeResponse struct {
	ID                string   `json:"id"`
	JobID             string   `json:"job_id"`
	RaisedBy          string   `json:"raised_by"`
	Against           string   `json:"against"`
	Reason            string   `json:"reason"`
	Description       string   `json:"description,omitempty"`
	Evidence          []string `json:"evidence"`
	Status            string   `json:"status"`
	AssignedVerifier  string   `json:"assigned_verifier,omitempty"`
	Decision          string   `json:"decision,omitempty"`
	PaymentPercentage *int     `json:"payment_percentage,omitempty"`
	Resolution        string   `json:"resolution,omitempty"`
	EscalationAdmin   string   `json:"escalation_admin,omitempty"`
	CreatedAt         string   `json:"created_at"`
	ResolvedAt        string   `json:"resolved_at,omitempty"`
}

type ResolveDisputeResponse struct {
	Dispute                  DisputeResponse `json:"dispute"`
	PendingAdminVerification bool            `json:"pending_admin_verification"`
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:               w.ID.String(),
		OwnerID:          w.OwnerID.String(),
		Balance:          w.Balance,
		AvailableBalance: w.AvailableBalance,
		Currency:         w.Currency,
		Tier:             w.Tier,
		Status:           string(w.Status),
		CreatedAt:        formatTime(w.CreatedAt),
	}
}

func mapBalanceToResponse(b *wallet.Balance) BalanceResponse {
	return BalanceResponse{
		OwnerID:          b.OwnerID.String(),
		Balance:          b.Balance,
		AvailableBalance: b.AvailableBalance,
		Held:             b.Held,
		Currency:         b.Currency,
		BalanceDisplay:   displayAmount(b.Balance),
		AvailableDisplay: displayAmount(b.AvailableBalance),
	}
}

func mapSummaryToResponse(s *wallet.Summary) SummaryResponse {
	return SummaryResponse{
		BalanceResponse:     mapBalanceToResponse(&s.Balance),
		TotalDeposits:       s.TotalDeposits,
		TotalWithdrawals:    s.TotalWithdrawals,
		PendingTransactions: s.PendingCount,
		ActiveHolds:         s.ActiveHolds,
	}
}

func mapTransactionToResponse(tx *wallet.Transaction) TransactionResponse {
	res := TransactionResponse{
		ID:            tx.ID.String(),
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		AmountDisplay: displayAmount(tx.Amount),
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Status:        string(tx.Status),
		Reference:     tx.Reference,
		Description:   tx.Description,
		JobID:         formatUUIDPtr(tx.JobID),
		EscrowID:      formatUUIDPtr(tx.EscrowID),
		FeeAmount:     tx.FeeAmount,
		CreatedAt:     formatTime(tx.CreatedAt),
		CompletedAt:   formatTimePtr(tx.CompletedAt),
	}
	if tx.ExternalReference != nil {
		res.ExternalReference = *tx.ExternalReference
	}
	return res
}

func mapTransferToResponse(r *wallet_ledger.TransferResult) TransferResponse {
	return TransferResponse{
		Debit:  mapTransactionToResponse(r.Debit),
		Credit: mapTransactionToResponse(r.Credit),
		Fee:    r.Fee,
	}
}

func mapFeeQuoteToResponse(q *service.FeeQuote) FeeQuoteResponse {
	return FeeQuoteResponse{
		Type:         string(q.Type),
		Amount:       q.Amount,
		Fee:          q.Fee,
		Total:        q.Total,
		TotalDisplay: displayAmount(q.Total),
	}
}

func mapEscrowToResponse(e *escrow.Escrow) EscrowResponse {
	return EscrowResponse{
		ID:                       e.ID.String(),
		JobID:                    e.JobID.String(),
		EmployerID:               e.EmployerID.String(),
		WorkerID:                 formatUUIDPtr(e.WorkerID),
		Amount:                   e.Amount,
		PlatformFee:              e.PlatformFee,
		HeldAmount:               e.HeldAmount,
		ReleasedAmount:           e.ReleasedAmount,
		AmountDisplay:            displayAmount(e.Amount),
		Status:                   string(e.Status),
		DisputeID:                formatUUIDPtr(e.DisputeID),
		PartialPaymentAllowed:    e.PartialPaymentAllowed,
		PartialPaymentPercentage: e.PartialPaymentPercentage,
		CreatedAt:                formatTime(e.CreatedAt),
		FundedAt:                 formatTimePtr(e.FundedAt),
		CompletedAt:              formatTimePtr(e.CompletedAt),
	}
}

func mapDisputeToResponse(d *dispute.Dispute) DisputeResponse {
	res := DisputeResponse{
		ID:                d.ID.String(),
		JobID:             d.JobID.String(),
		RaisedBy:          d.RaisedBy.String(),
		Against:           d.Against.String(),
		Reason:            d.Reason,
		Description:       d.Description,
		Evidence:          d.Evidence,
		Status:            string(d.Status),
		AssignedVerifier:  formatUUIDPtr(d.AssignedVerifier),
		PaymentPercentage: d.PaymentPercentage,
		Resolution:        d.Resolution,
		EscalationAdmin:   formatUUIDPtr(d.EscalationAdmin),
		CreatedAt:         formatTime(d.CreatedAt),
		ResolvedAt:        formatTimePtr(d.ResolvedAt),
	}
	if d.Decision != nil {
		res.Decision = string(*d.Decision)
	}
	return res
}
