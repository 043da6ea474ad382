package handler

import (
	"context"
	"log/slog"
	"os"

	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/dispute_engine"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Actor())
	return r
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error) {
	args := m.Called(ctx, ownerID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletService) GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletService) GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Summary), args.Error(1)
}

func (m *MockWalletService) GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	args := m.Called(ctx, ownerID, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) GetTransaction(ctx context.Context, ownerID uuid.UUID, reference string) (*wallet.Transaction, error) {
	args := m.Called(ctx, ownerID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletService) Fund(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error) {
	args := m.Called(ctx, ownerID, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletService) Withdraw(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error) {
	args := m.Called(ctx, ownerID, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletService) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount int64, reference, description string) (*wallet_ledger.TransferResult, error) {
	args := m.Called(ctx, senderID, recipientID, amount, reference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet_ledger.TransferResult), args.Error(1)
}

func (m *MockWalletService) QuoteFee(ctx context.Context, txType shared.TransactionType, amount int64) (*service.FeeQuote, error) {
	args := m.Called(ctx, txType, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FeeQuote), args.Error(1)
}

type MockEscrowService struct {
	mock.Mock
}

func (m *MockEscrowService) result(args mock.Arguments) (*escrow.Escrow, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Escrow), args.Error(1)
}

func (m *MockEscrowService) Create(ctx context.Context, actorID uuid.UUID, req escrow_engine.CreateRequest) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, req))
}

func (m *MockEscrowService) GetByID(ctx context.Context, actorID, escrowID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, escrowID))
}

func (m *MockEscrowService) GetByJob(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *MockEscrowService) AssignWorker(ctx context.Context, actorID, jobID, workerID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, jobID, workerID))
}

func (m *MockEscrowService) Release(ctx context.Context, actorID, jobID uuid.UUID, percentage int) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, jobID, percentage))
}

func (m *MockEscrowService) Complete(ctx context.Context, actorID, jobID uuid.UUID) (*escrow.Escrow, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

type MockDisputeService struct {
	mock.Mock
}

func (m *MockDisputeService) Create(ctx context.Context, actorID uuid.UUID, req dispute_engine.CreateRequest) (*dispute.Dispute, error) {
	args := m.Called(ctx, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeService) GetByID(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error) {
	args := m.Called(ctx, actorID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeService) Resolve(ctx context.Context, actorID, disputeID uuid.UUID, in dispute.ResolveInput) (*dispute.Outcome, error) {
	args := m.Called(ctx, actorID, disputeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Outcome), args.Error(1)
}

func (m *MockDisputeService) ConfirmEscalation(ctx context.Context, actorID, disputeID uuid.UUID) (*dispute.Dispute, error) {
	args := m.Called(ctx, actorID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockDisputeService) GetPending(ctx context.Context, actorID uuid.UUID) ([]*dispute.Dispute, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dispute.Dispute), args.Error(1)
}
