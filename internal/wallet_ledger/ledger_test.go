package wallet_ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/data/memory"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memory.Store
	ledger *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithProvider(t, payment.StaticProvider{})
}

func newFixtureWithProvider(t *testing.T, provider payment.Provider) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := New(Dependencies{
		DB:           store,
		Wallets:      store.Wallets(),
		Transactions: store.Transactions(),
		Holds:        store.Holds(),
		Rules:        store.Rules(),
		Events:       events.NewRecorder(store.Outbox(), logger),
		Payments:     provider,
		Config:       &config.LedgerConfig{DefaultCurrency: "NGN", DefaultTier: wallet.DefaultTier},
		Logger:       logger,
	})
	return &fixture{store: store, ledger: l}
}

// walletWith opens a wallet for a new owner and deposits amount into it
func (f *fixture) walletWith(t *testing.T, amount int64) uuid.UUID {
	t.Helper()
	owner := uuid.New()
	_, err := f.ledger.CreateWallet(context.Background(), owner, "")
	require.NoError(t, err)
	if amount > 0 {
		_, err = f.ledger.Credit(context.Background(), EntryRequest{
			OwnerID:   owner,
			Amount:    amount,
			Type:      shared.TransactionTypeDeposit,
			Reference: wallet.GenerateReference(),
		})
		require.NoError(t, err)
	}
	return owner
}

// assertHoldInvariant checks available <= balance and that the gap equals the active holds
func (f *fixture) assertHoldInvariant(t *testing.T, owner uuid.UUID) {
	t.Helper()
	w, err := f.store.Wallets().GetByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.LessOrEqual(t, w.AvailableBalance, w.Balance)
	assert.Equal(t, f.store.ActiveHoldTotal(w.ID), w.Balance-w.AvailableBalance)
}

func (f *fixture) balance(t *testing.T, owner uuid.UUID) *wallet.Balance {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), owner)
	require.NoError(t, err)
	return b
}

func TestLedger_CreateWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	w, err := f.ledger.CreateWallet(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, "NGN", w.Currency)
	assert.Equal(t, wallet.DefaultTier, w.Tier)
	assert.Contains(t, f.store.EventTypes(), outbox.EventWalletCreated)

	_, err = f.ledger.CreateWallet(ctx, owner, "USD")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.ledger.CreateWallet(ctx, uuid.New(), "NAIRA")
	assert.ErrorIs(t, err, wallet.ErrInvalidCurrencyFormat)
}

func TestLedger_CreditThenDebitRestoresBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 20000)
	_, err := f.ledger.CreateHold(ctx, HoldRequest{OwnerID: owner, Amount: 3000, Reason: "job"})
	require.NoError(t, err)
	start := f.balance(t, owner)

	credit, err := f.ledger.Credit(ctx, EntryRequest{OwnerID: owner, Amount: 7500, Type: shared.TransactionTypeBonus, Reference: "VRN_BONUS0001"})
	require.NoError(t, err)
	assert.Equal(t, credit.BalanceBefore+7500, credit.BalanceAfter)

	debit, err := f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 7500, Type: shared.TransactionTypePenalty, Reference: "VRN_PENALTY001"})
	require.NoError(t, err)
	assert.Equal(t, debit.BalanceBefore-7500, debit.BalanceAfter)

	end := f.balance(t, owner)
	assert.Equal(t, start.Balance, end.Balance)
	assert.Equal(t, start.AvailableBalance, end.AvailableBalance)
	f.assertHoldInvariant(t, owner)
}

func TestLedger_DepositAndWithdrawalTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 50000)

	_, err := f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 12000, Type: shared.TransactionTypeWithdrawal, Reference: "VRN_W1"})
	require.NoError(t, err)

	summary, err := f.ledger.GetSummary(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), summary.TotalDeposits)
	assert.Equal(t, int64(12000), summary.TotalWithdrawals)
	assert.Equal(t, int64(38000), summary.Balance.Balance)
	assert.Zero(t, summary.ActiveHolds)
}

func TestLedger_ReplayedReferenceAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 0)
	req := EntryRequest{OwnerID: owner, Amount: 5000, Type: shared.TransactionTypeDeposit, Reference: "VRN_REPLAY0001"}

	first, err := f.ledger.Credit(ctx, req)
	require.NoError(t, err)

	_, err = f.ledger.Credit(ctx, req)
	var dup wallet.ErrDuplicateReference
	require.True(t, errors.As(err, &dup))
	require.NotNil(t, dup.Existing)
	assert.Equal(t, first.ID, dup.Existing.ID)

	_, err = f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 5000, Type: shared.TransactionTypePenalty, Reference: "VRN_REPLAY0001"})
	assert.ErrorIs(t, err, shared.ErrDuplicateReference)

	assert.Equal(t, int64(5000), f.balance(t, owner).Balance)
}

func TestLedger_DebitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 1000)

	tests := []struct {
		name string
		req  EntryRequest
		want error
	}{
		{"ZeroAmount", EntryRequest{OwnerID: owner, Amount: 0, Type: shared.TransactionTypePenalty, Reference: "R1"}, wallet.ErrInvalidAmount},
		{"MissingReference", EntryRequest{OwnerID: owner, Amount: 10, Type: shared.TransactionTypePenalty}, wallet.ErrEmptyReference},
		{"UnknownType", EntryRequest{OwnerID: owner, Amount: 10, Type: "gift", Reference: "R2"}, shared.ErrValidation},
		{"Insufficient", EntryRequest{OwnerID: owner, Amount: 1001, Type: shared.TransactionTypePenalty, Reference: "R3"}, shared.ErrInsufficientFunds},
		{"UnknownWallet", EntryRequest{OwnerID: uuid.New(), Amount: 10, Type: shared.TransactionTypePenalty, Reference: "R4"}, shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Debit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, int64(1000), f.balance(t, owner).Balance)
	_, err := f.ledger.GetTransactionByReference(ctx, "R3")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedger_ConcurrentDebitsExactlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 10000)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.ledger.Debit(ctx, EntryRequest{
				OwnerID:   owner,
				Amount:    10000,
				Type:      shared.TransactionTypeServicePayment,
				Reference: wallet.GenerateReference(),
			})
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, shared.ErrInsufficientFunds):
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	b := f.balance(t, owner)
	assert.Zero(t, b.Balance)
	assert.Zero(t, b.AvailableBalance)
}

func TestLedger_Transfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddFeeTier(wallet.FeeTier{TransactionType: shared.TransactionTypeTransfer, MinAmount: 1, MaxAmount: 1_000_000,
		FeeType: wallet.FeeTypePercentage, Value: 100})

	sender := f.walletWith(t, 50000)
	recipient := f.walletWith(t, 1000)
	totalBefore := f.balance(t, sender).Balance + f.balance(t, recipient).Balance

	t.Run("ConservesFundsLessFee", func(t *testing.T) {
		res, err := f.ledger.Transfer(ctx, TransferRequest{SenderID: sender, RecipientID: recipient, Amount: 10000, Reference: "VRN_TRANSFER01"})
		require.NoError(t, err)

		assert.Equal(t, int64(100), res.Fee)
		assert.Equal(t, int64(10100), res.Debit.Amount)
		assert.Equal(t, int64(100), res.Debit.FeeAmount)
		require.NotNil(t, res.Debit.RecipientWalletID)
		assert.Equal(t, "VRN_TRANSFER01-CR", res.Credit.Reference)

		totalAfter := f.balance(t, sender).Balance + f.balance(t, recipient).Balance
		assert.Equal(t, totalBefore-res.Fee, totalAfter)
		assert.Equal(t, int64(11000), f.balance(t, recipient).Balance)
		assert.Contains(t, f.store.EventTypes(), outbox.EventTransferred)
	})

	t.Run("Replay", func(t *testing.T) {
		_, err := f.ledger.Transfer(ctx, TransferRequest{SenderID: sender, RecipientID: recipient, Amount: 10000, Reference: "VRN_TRANSFER01"})
		assert.ErrorIs(t, err, shared.ErrDuplicateReference)
		assert.Equal(t, int64(11000), f.balance(t, recipient).Balance)
	})

	t.Run("SelfTransfer", func(t *testing.T) {
		_, err := f.ledger.Transfer(ctx, TransferRequest{SenderID: sender, RecipientID: sender, Amount: 100, Reference: "VRN_SELF"})
		assert.ErrorIs(t, err, wallet.ErrSelfTransfer)
	})

	t.Run("InsufficientLeavesBothUntouched", func(t *testing.T) {
		senderBefore := f.balance(t, sender)
		_, err := f.ledger.Transfer(ctx, TransferRequest{SenderID: sender, RecipientID: recipient, Amount: senderBefore.AvailableBalance, Reference: "VRN_TOO_MUCH"})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.Equal(t, senderBefore.Balance, f.balance(t, sender).Balance)
		assert.Equal(t, int64(11000), f.balance(t, recipient).Balance)
		_, err = f.ledger.GetTransactionByReference(ctx, "VRN_TOO_MUCH-CR")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("PerTransactionLimit", func(t *testing.T) {
		f.store.SetLimitRule(wallet.LimitRule{Tier: wallet.DefaultTier, TransactionType: shared.TransactionTypeTransfer, PerTransactionLimit: 5000})
		_, err := f.ledger.Transfer(ctx, TransferRequest{SenderID: sender, RecipientID: recipient, Amount: 5001, Reference: "VRN_LIMITED"})
		var exceeded wallet.ErrLimitExceeded
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, "per_transaction", exceeded.Window)
	})
}

func TestLedger_CalculateFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddFeeTier(wallet.FeeTier{TransactionType: shared.TransactionTypeJobPayment, MinAmount: 1, MaxAmount: 99999,
		FeeType: wallet.FeeTypeFixed, Value: 500})
	f.store.AddFeeTier(wallet.FeeTier{TransactionType: shared.TransactionTypeJobPayment, MinAmount: 100000, MaxAmount: 10_000_000,
		FeeType: wallet.FeeTypePercentage, Value: 300})

	fee, err := f.ledger.CalculateFee(ctx, shared.TransactionTypeJobPayment, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), fee)

	fee, err = f.ledger.CalculateFee(ctx, shared.TransactionTypeJobPayment, 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), fee)

	fee, err = f.ledger.CalculateFee(ctx, shared.TransactionTypeWithdrawal, 20000)
	require.NoError(t, err)
	assert.Zero(t, fee)
}

func TestLedger_CheckLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 100000)

	assert.NoError(t, f.ledger.CheckLimits(ctx, owner, shared.TransactionTypeWithdrawal, 90000), "no rule means unlimited")

	f.store.SetLimitRule(wallet.LimitRule{Tier: wallet.DefaultTier, TransactionType: shared.TransactionTypeWithdrawal, DailyLimit: 15000})
	_, err := f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 10000, Type: shared.TransactionTypeWithdrawal, Reference: "VRN_DAILY1"})
	require.NoError(t, err)

	assert.NoError(t, f.ledger.CheckLimits(ctx, owner, shared.TransactionTypeWithdrawal, 5000))

	err = f.ledger.CheckLimits(ctx, owner, shared.TransactionTypeWithdrawal, 6000)
	var exceeded wallet.ErrLimitExceeded
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, "daily", exceeded.Window)
	assert.Equal(t, int64(16000), exceeded.Attempted)

	_, err = f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 6000, Type: shared.TransactionTypeWithdrawal, Reference: "VRN_DAILY2"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLedger_RefundTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 30000)

	_, err := f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 8000, Type: shared.TransactionTypeServicePayment, Reference: "VRN_SVC1"})
	require.NoError(t, err)

	refund, err := f.ledger.RefundTransaction(ctx, "VRN_SVC1", "service not delivered")
	require.NoError(t, err)
	assert.Equal(t, "REFUND-VRN_SVC1", refund.Reference)
	assert.Equal(t, shared.TransactionTypeRefund, refund.Type)
	assert.Equal(t, int64(30000), f.balance(t, owner).Balance)
	assert.Contains(t, f.store.EventTypes(), outbox.EventRefunded)

	_, err = f.ledger.RefundTransaction(ctx, "VRN_SVC1", "again")
	assert.ErrorIs(t, err, shared.ErrDuplicateReference)

	_, err = f.ledger.RefundTransaction(ctx, "REFUND-VRN_SVC1", "refund a refund")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.ledger.RefundTransaction(ctx, "VRN_MISSING", "nothing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedger_GetTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.walletWith(t, 10000)
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Debit(ctx, EntryRequest{OwnerID: owner, Amount: 100, Type: shared.TransactionTypePenalty, Reference: wallet.GenerateReference()})
		require.NoError(t, err)
	}

	penalty := shared.TransactionTypePenalty
	txns, total, err := f.ledger.GetTransactions(ctx, owner, wallet.TransactionFilter{Type: &penalty}, wallet.Pagination{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txns, 2)

	all, total, err := f.ledger.GetTransactions(ctx, owner, wallet.TransactionFilter{}, wallet.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	_, _, err = f.ledger.GetTransactions(ctx, uuid.New(), wallet.TransactionFilter{}, wallet.Pagination{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
