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
	"github.com/stretchr/testify/mock"
)

type MockWalletLedger struct {
	mock.Mock
}

func (m *MockWalletLedger) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error) {
	args := m.Called(ctx, ownerID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletLedger) GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletLedger) GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Summary), args.Error(1)
}

func (m *MockWalletLedger) GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	args := m.Called(ctx, ownerID, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletLedger) GetTransactionByReference(ctx context.Context, reference string) (*wallet.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletLedger) FundWallet(ctx context.Context, req wallet_ledger.FundingRequest) (*wallet.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletLedger) Withdraw(ctx context.Context, req wallet_ledger.FundingRequest) (*wallet.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletLedger) Transfer(ctx context.Context, req wallet_ledger.TransferRequest) (*wallet_ledger.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet_ledger.TransferResult), args.Error(1)
}

func (m *MockWalletLedger) CalculateFee(ctx context.Context, txType shared.TransactionType, amount int64) (int64, error) {
	args := m.Called(ctx, txType, amount)
	return args.Get(0).(int64), args.Error(1)
}

type MockEscrowEngine struct {
	mock.Mock
}

func (m *MockEscrowEngine) result(args mock.Arguments) (*escrow.Escrow, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Escrow), args.Error(1)
}

func (m *MockEscrowEngine) Create(ctx context.Context, req escrow_engine.CreateRequest) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockEscrowEngine) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockEscrowEngine) GetByJob(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, jobID))
}

func (m *MockEscrowEngine) AssignWorker(ctx context.Context, jobID, workerID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, jobID, workerID))
}

func (m *MockEscrowEngine) ReleasePartial(ctx context.Context, jobID uuid.UUID, pct int) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, jobID, pct))
}

func (m *MockEscrowEngine) Complete(ctx context.Context, jobID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, jobID))
}

type MockJobReader struct {
	mock.Mock
}

func (m *MockJobReader) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

type MockDisputeEngine struct {
	mock.Mock
}

func (m *MockDisputeEngine) Create(ctx context.Context, req dispute_engine.CreateRequest) (*dispute.Dispute, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeEngine) GetByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeEngine) Resolve(ctx context.Context, disputeID, verifierID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error) {
	args := m.Called(ctx, disputeID, verifierID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Outcome), args.Error(1)
}

func (m *MockDisputeEngine) ConfirmEscalation(ctx context.Context, disputeID, adminID uuid.UUID) (*dispute.Dispute, error) {
	args := m.Called(ctx, disputeID, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeEngine) GetPendingForVerifier(ctx context.Context, verifierID uuid.UUID) ([]*dispute.Dispute, error) {
	args := m.Called(ctx, verifierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dispute.Dispute), args.Error(1)
}
