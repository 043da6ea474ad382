package wallet_ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Collect(ctx context.Context, req payment.CollectRequest) (payment.Receipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Receipt), args.Error(1)
}

func (m *MockProvider) Payout(ctx context.Context, req payment.PayoutRequest) (payment.Receipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Receipt), args.Error(1)
}

func TestLedger_FundWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 0)

	txn, err := f.ledger.FundWallet(ctx, FundingRequest{OwnerID: owner, Amount: 25000, Reference: "VRN_FUND0001"})
	require.NoError(t, err)
	assert.Equal(t, shared.TransactionTypeDeposit, txn.Type)
	require.NotNil(t, txn.ExternalReference)
	assert.True(t, strings.HasPrefix(*txn.ExternalReference, "PSP-"))

	summary, err := f.ledger.GetSummary(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), summary.TotalDeposits)
}

func TestLedger_FundWalletReplayDoesNotCollectTwice(t *testing.T) {
	provider := &MockProvider{}
	provider.On("Collect", mock.Anything, mock.Anything).
		Return(payment.Receipt{ExternalReference: "PSP-1", Status: "approved"}, nil).Once()

	f := newFixtureWithProvider(t, provider)
	ctx := context.Background()
	owner := f.walletWith(t, 0)

	_, err := f.ledger.FundWallet(ctx, FundingRequest{OwnerID: owner, Amount: 1000, Reference: "VRN_FUND0002"})
	require.NoError(t, err)
	_, err = f.ledger.FundWallet(ctx, FundingRequest{OwnerID: owner, Amount: 1000, Reference: "VRN_FUND0002"})
	assert.ErrorIs(t, err, shared.ErrDuplicateReference)

	assert.Equal(t, int64(1000), f.balance(t, owner).Balance)
	provider.AssertExpectations(t)
}

func TestLedger_FundWalletProviderFailure(t *testing.T) {
	provider := &MockProvider{}
	provider.On("Collect", mock.Anything, mock.Anything).Return(payment.Receipt{}, errors.New("gateway down"))

	f := newFixtureWithProvider(t, provider)
	owner := f.walletWith(t, 0)

	_, err := f.ledger.FundWallet(context.Background(), FundingRequest{OwnerID: owner, Amount: 1000, Reference: "VRN_FUND0003"})
	assert.ErrorContains(t, err, "gateway down")
	assert.Zero(t, f.balance(t, owner).Balance)
}

func TestLedger_Withdraw(t *testing.T) {
	provider := &MockProvider{}
	f := newFixtureWithProvider(t, provider)
	ctx := context.Background()
	f.store.AddFeeTier(wallet.FeeTier{TransactionType: shared.TransactionTypeWithdrawal, MinAmount: 1, MaxAmount: 1_000_000,
		FeeType: wallet.FeeTypeFixed, Value: 100})
	provider.On("Collect", mock.Anything, mock.Anything).Return(payment.Receipt{ExternalReference: "PSP-IN"}, nil)

	owner := f.walletWith(t, 0)
	_, err := f.ledger.FundWallet(ctx, FundingRequest{OwnerID: owner, Amount: 20000, Reference: "VRN_SEED"})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		provider.On("Payout", mock.Anything, mock.MatchedBy(func(req payment.PayoutRequest) bool {
			return req.Reference == "VRN_OUT1"
		})).Return(payment.Receipt{ExternalReference: "PSP-OUT1", Status: "approved"}, nil).Once()

		txn, err := f.ledger.Withdraw(ctx, FundingRequest{OwnerID: owner, Amount: 5000, Reference: "VRN_OUT1"})
		require.NoError(t, err)
		assert.Equal(t, int64(5100), txn.Amount)
		assert.Equal(t, int64(100), txn.FeeAmount)
		assert.Equal(t, int64(14900), f.balance(t, owner).Balance)
	})

	t.Run("PayoutFailureIsReversed", func(t *testing.T) {
		provider.On("Payout", mock.Anything, mock.MatchedBy(func(req payment.PayoutRequest) bool {
			return req.Reference == "VRN_OUT2"
		})).Return(payment.Receipt{}, errors.New("bank rejected")).Once()

		_, err := f.ledger.Withdraw(ctx, FundingRequest{OwnerID: owner, Amount: 5000, Reference: "VRN_OUT2"})
		assert.ErrorContains(t, err, "bank rejected")
		assert.Equal(t, int64(14900), f.balance(t, owner).Balance)

		reversal, err := f.ledger.GetTransactionByReference(ctx, "REFUND-VRN_OUT2")
		require.NoError(t, err)
		assert.Equal(t, int64(5100), reversal.Amount)
		assert.Contains(t, f.store.EventTypes(), outbox.EventPayoutReversed)
	})

	t.Run("Insufficient", func(t *testing.T) {
		_, err := f.ledger.Withdraw(ctx, FundingRequest{OwnerID: owner, Amount: 14850, Reference: "VRN_OUT3"})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
	})

	provider.AssertExpectations(t)
}
