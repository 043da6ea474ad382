// Package wallet_ledger is the single point of truth for money movement.
// Every balance change locks the wallet row, writes an immutable transaction
// record and an outbox event, and commits as one database transaction.
package wallet_ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/escrow-ledger/internal/config"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/events"
	"github.com/escrow-ledger/internal/platform/payment"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Dependencies wires the ledger to its stores and collaborators
type Dependencies struct {
	DB           persistence.TxManager
	Wallets      wallet.Repository
	Transactions wallet.TransactionRepository
	Holds        wallet.HoldRepository
	Rules        wallet.RuleRepository
	Events       events.Recorder
	Payments     payment.Provider
	Config       *config.LedgerConfig
	Logger       *slog.Logger
}

type Ledger struct {
	db       persistence.TxManager
	wallets  wallet.Repository
	txns     wallet.TransactionRepository
	holds    wallet.HoldRepository
	rules    wallet.RuleRepository
	events   events.Recorder
	payments payment.Provider
	cfg      *config.LedgerConfig
	logger   *slog.Logger
	now      func() time.Time
}

func New(deps Dependencies) *Ledger {
	return &Ledger{
		db:       deps.DB,
		wallets:  deps.Wallets,
		txns:     deps.Transactions,
		holds:    deps.Holds,
		rules:    deps.Rules,
		events:   deps.Events,
		payments: deps.Payments,
		cfg:      deps.Config,
		logger:   deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EntryRequest describes one credit or debit
type EntryRequest struct {
	OwnerID           uuid.UUID
	Amount            int64
	Type              shared.TransactionType
	Description       string
	Reference         string
	ExternalReference *string
	Metadata          map[string]any
	JobID             *uuid.UUID
	EscrowID          *uuid.UUID
	RecipientWalletID *uuid.UUID
	// Fee is the part of Amount kept by the platform; recorded, not moved
	Fee int64
}

func (r EntryRequest) validate() error {
	if r.OwnerID == uuid.Nil {
		return wallet.ErrEmptyOwner
	}
	if r.Amount <= 0 {
		return wallet.ErrInvalidAmount
	}
	if r.Reference == "" {
		return wallet.ErrEmptyReference
	}
	if !r.Type.Valid() {
		return shared.ValidationError{Field: "type", Reason: "is not a known transaction type"}
	}
	return nil
}

type movement int

const (
	moveCredit movement = iota
	moveDebit
	// moveConsume removes previously held funds from the balance
	moveConsume
)

// CreateWallet opens an empty wallet for the owner. An empty currency uses the configured default.
func (l *Ledger) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error) {
	if currency == "" {
		currency = l.cfg.DefaultCurrency
	}
	w, err := wallet.NewWallet(ownerID, currency)
	if err != nil {
		return nil, err
	}
	if l.cfg.DefaultTier != "" {
		w.Tier = l.cfg.DefaultTier
	}

	err = l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := l.wallets.WithTx(tx).Create(ctx, w); err != nil {
			return err
		}
		return l.events.Record(ctx, tx, outbox.EventWalletCreated, outbox.AggregateWallet, w.ID, map[string]any{
			"owner_id": ownerID.String(),
			"currency": w.Currency,
			"tier":     w.Tier,
		})
	})
	if err != nil {
		l.logger.Warn("Failed to create wallet", "owner_id", ownerID.String(), "error", err)
		return nil, err
	}

	l.logger.Info("Wallet created", "owner_id", ownerID.String(), "wallet_id", w.ID.String())
	return w, nil
}

// Credit adds funds to the owner's wallet
func (l *Ledger) Credit(ctx context.Context, req EntryRequest) (*wallet.Transaction, error) {
	return l.post(ctx, req, moveCredit, "")
}

// Debit removes funds from the owner's available balance
func (l *Ledger) Debit(ctx context.Context, req EntryRequest) (*wallet.Transaction, error) {
	return l.post(ctx, req, moveDebit, "")
}

// post runs one single-wallet entry in its own transaction.
// A reused reference fails with ErrDuplicateReference carrying the stored transaction.
func (l *Ledger) post(ctx context.Context, req EntryRequest, move movement, eventType string) (*wallet.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := l.ensureUnused(ctx, req.Reference); err != nil {
		return nil, err
	}

	logger := l.logger.With("owner_id", req.OwnerID.String(), "reference", req.Reference)

	var txn *wallet.Transaction
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := l.wallets.WithTx(tx).LockByOwner(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if move == moveDebit {
			if err := l.checkLimits(ctx, l.txns.WithTx(tx), w, req.Type, req.Amount); err != nil {
				return err
			}
		}

		txn, err = l.apply(ctx, tx, w, req, move)
		if err != nil {
			return err
		}
		return l.recordTransaction(ctx, tx, eventType, txn)
	})
	if err != nil {
		err = l.resolveDuplicate(ctx, req.Reference, err)
		logger.Warn("Ledger entry rejected", "type", req.Type, "amount", req.Amount, "error", err)
		return nil, err
	}

	logger.Info("Ledger entry committed", "type", req.Type, "amount", req.Amount, "balance_after", txn.BalanceAfter)
	return txn, nil
}

// apply mutates the locked wallet, persists it and stores the transaction record
func (l *Ledger) apply(ctx context.Context, tx pgx.Tx, w *wallet.Wallet, req EntryRequest, move movement) (*wallet.Transaction, error) {
	if err := w.CanTransact(); err != nil {
		return nil, err
	}

	now := l.now()
	before := w.Balance

	var err error
	switch move {
	case moveCredit:
		err = w.Credit(req.Amount, now)
		if err == nil && req.Type == shared.TransactionTypeDeposit {
			w.TotalDeposits += req.Amount
		}
	case moveDebit:
		err = w.Debit(req.Amount, now)
		if err == nil && req.Type == shared.TransactionTypeWithdrawal {
			w.TotalWithdrawals += req.Amount
		}
	case moveConsume:
		err = w.Consume(req.Amount, now)
	}
	if err != nil {
		return nil, err
	}

	if err := l.wallets.WithTx(tx).UpdateBalances(ctx, w); err != nil {
		return nil, err
	}

	metadata, err := encodeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	txn := &wallet.Transaction{
		ID:                uuid.New(),
		WalletID:          w.ID,
		OwnerID:           w.OwnerID,
		Type:              req.Type,
		Amount:            req.Amount,
		BalanceBefore:     before,
		BalanceAfter:      w.Balance,
		Status:            shared.TransactionStatusCompleted,
		Reference:         req.Reference,
		ExternalReference: req.ExternalReference,
		Description:       req.Description,
		Metadata:          metadata,
		JobID:             req.JobID,
		EscrowID:          req.EscrowID,
		RecipientWalletID: req.RecipientWalletID,
		FeeAmount:         req.Fee,
		CreatedAt:         now,
		UpdatedAt:         now,
		CompletedAt:       &now,
	}
	if err := l.txns.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// recordTransaction writes the outbox event for txn. An empty eventType is derived from the record.
func (l *Ledger) recordTransaction(ctx context.Context, tx pgx.Tx, eventType string, txn *wallet.Transaction) error {
	if eventType == "" {
		switch {
		case txn.Type == shared.TransactionTypeRefund:
			eventType = outbox.EventRefunded
		case txn.IsCredit():
			eventType = outbox.EventCredited
		default:
			eventType = outbox.EventDebited
		}
	}
	return l.events.Record(ctx, tx, eventType, outbox.AggregateWallet, txn.WalletID, transactionPayload(txn))
}

func transactionPayload(txn *wallet.Transaction) map[string]any {
	payload := map[string]any{
		"transaction_id": txn.ID.String(),
		"owner_id":       txn.OwnerID.String(),
		"type":           string(txn.Type),
		"reference":      txn.Reference,
		"amount":         txn.Amount,
		"fee":            txn.FeeAmount,
		"balance_before": txn.BalanceBefore,
		"balance_after":  txn.BalanceAfter,
	}
	if txn.JobID != nil {
		payload["job_id"] = txn.JobID.String()
	}
	if txn.EscrowID != nil {
		payload["escrow_id"] = txn.EscrowID.String()
	}
	return payload
}

func encodeMetadata(metadata map[string]any) (json.RawMessage, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, shared.ValidationError{Field: "metadata", Reason: "must be JSON encodable"}
	}
	return raw, nil
}

// ensureUnused answers a replayed reference before any lock is taken
func (l *Ledger) ensureUnused(ctx context.Context, reference string) error {
	existing, err := l.txns.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	return wallet.ErrDuplicateReference{Reference: reference, Existing: existing}
}

// resolveDuplicate attaches the stored transaction to a duplicate-reference failure
// raised by a concurrent writer that committed first
func (l *Ledger) resolveDuplicate(ctx context.Context, reference string, err error) error {
	if !errors.Is(err, shared.ErrDuplicateReference) {
		return err
	}
	existing, lookupErr := l.txns.GetByReference(ctx, reference)
	if lookupErr != nil {
		return err
	}
	return wallet.ErrDuplicateReference{Reference: reference, Existing: existing}
}

// TransferRequest moves funds between two owners
type TransferRequest struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Amount      int64
	Description string
	Reference   string
	Metadata    map[string]any
}

// TransferResult holds both legs of a transfer
type TransferResult struct {
	Debit  *wallet.Transaction `json:"debit"`
	Credit *wallet.Transaction `json:"credit"`
	Fee    int64               `json:"fee"`
}

// creditReferenceSuffix marks the recipient leg of a transfer
const creditReferenceSuffix = "-CR"

// Transfer debits the sender amount plus the transfer fee and credits the recipient amount,
// both legs in one transaction. Wallets are locked lowest id first.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.SenderID == uuid.Nil || req.RecipientID == uuid.Nil {
		return nil, wallet.ErrEmptyOwner
	}
	if req.SenderID == req.RecipientID {
		return nil, wallet.ErrSelfTransfer
	}
	if req.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	if req.Reference == "" {
		return nil, wallet.ErrEmptyReference
	}
	if err := l.ensureUnused(ctx, req.Reference); err != nil {
		return nil, err
	}

	fee, err := l.CalculateFee(ctx, shared.TransactionTypeTransfer, req.Amount)
	if err != nil {
		return nil, err
	}

	sender, err := l.wallets.GetByOwner(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := l.wallets.GetByOwner(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	logger := l.logger.With("reference", req.Reference, "sender_id", req.SenderID.String(), "recipient_id", req.RecipientID.String())

	result := &TransferResult{Fee: fee}
	err = l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		wallets := l.wallets.WithTx(tx)

		locked := make(map[uuid.UUID]*wallet.Wallet, 2)
		for _, owner := range lockOrder(sender, recipient) {
			w, err := wallets.LockByOwner(ctx, owner)
			if err != nil {
				return err
			}
			locked[owner] = w
		}
		from, to := locked[req.SenderID], locked[req.RecipientID]

		if err := to.CanTransact(); err != nil {
			return err
		}
		if err := l.checkLimits(ctx, l.txns.WithTx(tx), from, shared.TransactionTypeTransfer, req.Amount); err != nil {
			return err
		}

		recipientWalletID := to.ID
		debit := EntryRequest{
			OwnerID:           req.SenderID,
			Amount:            req.Amount + fee,
			Type:              shared.TransactionTypeTransfer,
			Description:       req.Description,
			Reference:         req.Reference,
			Metadata:          req.Metadata,
			RecipientWalletID: &recipientWalletID,
			Fee:               fee,
		}
		var err error
		if result.Debit, err = l.apply(ctx, tx, from, debit, moveDebit); err != nil {
			return err
		}

		credit := EntryRequest{
			OwnerID:     req.RecipientID,
			Amount:      req.Amount,
			Type:        shared.TransactionTypeTransfer,
			Description: req.Description,
			Reference:   req.Reference + creditReferenceSuffix,
			Metadata:    req.Metadata,
		}
		if result.Credit, err = l.apply(ctx, tx, to, credit, moveCredit); err != nil {
			return err
		}

		return l.events.Record(ctx, tx, outbox.EventTransferred, outbox.AggregateWallet, from.ID, map[string]any{
			"reference":           req.Reference,
			"amount":              req.Amount,
			"fee":                 fee,
			"sender_id":           req.SenderID.String(),
			"recipient_id":        req.RecipientID.String(),
			"recipient_wallet_id": to.ID.String(),
		})
	})
	if err != nil {
		err = l.resolveDuplicate(ctx, req.Reference, err)
		logger.Warn("Transfer rejected", "amount", req.Amount, "error", err)
		return nil, err
	}

	logger.Info("Transfer committed", "amount", req.Amount, "fee", fee)
	return result, nil
}

// lockOrder returns the two owners ordered by wallet id
func lockOrder(a, b *wallet.Wallet) []uuid.UUID {
	if a.ID.String() < b.ID.String() {
		return []uuid.UUID{a.OwnerID, b.OwnerID}
	}
	return []uuid.UUID{b.OwnerID, a.OwnerID}
}

// refundReferencePrefix marks a credit reversing an earlier debit
const refundReferencePrefix = "REFUND-"

// RefundTransaction credits back the amount of a completed debit. The refund reference is
// derived from the original, so a second refund of the same transaction is a duplicate.
func (l *Ledger) RefundTransaction(ctx context.Context, reference, reason string) (*wallet.Transaction, error) {
	original, err := l.txns.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if original.Status != shared.TransactionStatusCompleted || original.IsCredit() {
		return nil, shared.ValidationError{Field: "reference", Reason: "is not a refundable debit"}
	}

	return l.Credit(ctx, EntryRequest{
		OwnerID:     original.OwnerID,
		Amount:      original.Amount,
		Type:        shared.TransactionTypeRefund,
		Description: reason,
		Reference:   refundReferencePrefix + reference,
		Metadata:    map[string]any{"original_reference": reference},
		JobID:       original.JobID,
		EscrowID:    original.EscrowID,
	})
}

// GetBalance returns the owner's balance figures
func (l *Ledger) GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error) {
	w, err := l.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &wallet.Balance{
		OwnerID:          w.OwnerID,
		Balance:          w.Balance,
		AvailableBalance: w.AvailableBalance,
		Held:             w.Held(),
		Currency:         w.Currency,
	}, nil
}

// GetSummary returns balance figures with lifetime totals and open counts
func (l *Ledger) GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error) {
	w, err := l.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	pending, err := l.txns.CountByStatus(ctx, w.ID, shared.TransactionStatusPending)
	if err != nil {
		return nil, err
	}
	activeHolds, err := l.holds.CountActive(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	return &wallet.Summary{
		Balance: wallet.Balance{
			OwnerID:          w.OwnerID,
			Balance:          w.Balance,
			AvailableBalance: w.AvailableBalance,
			Held:             w.Held(),
			Currency:         w.Currency,
		},
		TotalDeposits:    w.TotalDeposits,
		TotalWithdrawals: w.TotalWithdrawals,
		PendingCount:     pending,
		ActiveHolds:      activeHolds,
	}, nil
}

// GetTransactions lists the owner's history, newest first, with the total match count
func (l *Ledger) GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	w, err := l.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return l.txns.ListByWallet(ctx, w.ID, filter, page.Normalize())
}

func (l *Ledger) GetTransactionByReference(ctx context.Context, reference string) (*wallet.Transaction, error) {
	return l.txns.GetByReference(ctx, reference)
}
