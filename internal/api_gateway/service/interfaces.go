package service

import (
	"context"

	"github.com/escrow-ledger/internal/dispute_engine"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/google/uuid"
)

// WalletService defines the wallet operations exposed over HTTP.
// Every call acts on the wallet of the given owner.
type WalletService interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error)
	GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error)
	GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error)

	// GetTransactions returns one page of the owner's transactions and the total count
	GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error)

	// GetTransaction returns a transaction by reference. Transactions of other owners
	// are reported as not found.
	GetTransaction(ctx context.Context, ownerID uuid.UUID, reference string) (*wallet.Transaction, error)

	Fund(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error)
	Withdraw(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error)
	Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount int64, reference, description string) (*wallet_ledger.TransferResult, error)
	QuoteFee(ctx context.Context, txType shared.TransactionType, amount int64) (*FeeQuote, error)
}

// EscrowService defines escrow operations. Mutations are reserved to the job's employer.
type EscrowService interface {
	Create(ctx context.Context, actorID uuid.UUID, req escrow_engine.CreateRequest) (*escrow.Escrow, error)
	GetByID(ctx context.Context, actorID, escrowID uuid.UUID) (*escrow.Escrow, error)
	GetByJob(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error)
	AssignWorker(ctx context.Context, actorID, jobID, workerID uuid.UUID) (*escrow.Escrow, error)
	Release(ctx context.Context, actorID, jobID uuid.UUID, percentage int) (*escrow.Escrow, error)
	Complete(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error)
}

// DisputeService defines dispute operations
type DisputeService interface {
	Create(ctx context.Context, actorID uuid.UUID, req dispute_engine.CreateRequest) (*dispute.Dispute, error)
	GetByID(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error)
	Resolve(ctx context.Context, actorID, disputeID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error)
	ConfirmEscalation(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error)
	GetPending(ctx context.Context, actorID uuid.UUID) ([]*dispute.Dispute, error)
}

// WalletLedger is the part of the wallet ledger the gateway drives
type WalletLedger interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error)
	GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error)
	GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error)
	GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error)
	GetTransactionByReference(ctx context.Context, reference string) (*wallet.Transaction, error)
	FundWallet(ctx context.Context, req wallet_ledger.FundingRequest) (*wallet.Transaction, error)
	Withdraw(ctx context.Context, req wallet_ledger.FundingRequest) (*wallet.Transaction, error)
	Transfer(ctx context.Context, req wallet_ledger.TransferRequest) (*wallet_ledger.TransferResult, error)
	CalculateFee(ctx context.Context, txType shared.TransactionType, amount int64) (int64, error)
}

// EscrowEngine is the part of the escrow engine the gateway drives
type EscrowEngine interface {
	Create(ctx context.Context, req escrow_engine.CreateRequest) (*escrow.Escrow, error)
	GetByID(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error)
	GetByJob(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error)
	AssignWorker(ctx context.Context, jobID, workerID uuid.UUID) (*escrow.Escrow, error)
	ReleasePartial(ctx context.Context, jobID uuid.UUID, pct int) (*escrow.Escrow, error)
	Complete(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error)
}

// JobReader looks up the job an escrow is opened for
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

// DisputeEngine is the part of the dispute engine the gateway drives
type DisputeEngine interface {
	Create(ctx context.Context, req dispute_engine.CreateRequest) (*dispute.Dispute, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error)
	Resolve(ctx context.Context, disputeID, verifierID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error)
	ConfirmEscalation(ctx context.Context, disputeID, adminID uuid.UUID) (*dispute.Dispute, error)
	GetPendingForVerifier(ctx context.Context, verifierID uuid.UUID) ([]*dispute.Dispute, error)
}

var (
	_ WalletLedger  = (*wallet_ledger.Ledger)(nil)
	_ EscrowEngine  = (*escrow_engine.Engine)(nil)
	_ DisputeEngine = (*dispute_engine.Engine)(nil)
	_ JobReader     = job.Repository(nil)
)
