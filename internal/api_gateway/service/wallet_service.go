package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/wallet_ledger"
	"github.com/google/uuid"
)

// FeeQuote is the fee a transaction of the given type and amount would carry
type FeeQuote struct {
	Type   shared.TransactionType `json:"type"`
	Amount int64                  `json:"amount"`
	Fee    int64                  `json:"fee"`
	Total  int64                  `json:"total"`
}

type WalletServiceImpl struct {
	ledger WalletLedger
	logger *slog.Logger
}

func NewWalletService(logger *slog.Logger, ledger WalletLedger) WalletService {
	return &WalletServiceImpl{ledger: ledger, logger: logger}
}

func (s *WalletServiceImpl) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*wallet.Wallet, error) {
	return s.ledger.CreateWallet(ctx, ownerID, currency)
}

func (s *WalletServiceImpl) GetBalance(ctx context.Context, ownerID uuid.UUID) (*wallet.Balance, error) {
	return s.ledger.GetBalance(ctx, ownerID)
}

func (s *WalletServiceImpl) GetSummary(ctx context.Context, ownerID uuid.UUID) (*wallet.Summary, error) {
	return s.ledger.GetSummary(ctx, ownerID)
}

func (s *WalletServiceImpl) GetTransactions(ctx context.Context, ownerID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	return s.ledger.GetTransactions(ctx, ownerID, filter, page.Normalize())
}

func (s *WalletServiceImpl) GetTransaction(ctx context.Context, ownerID uuid.UUID, reference string) (*wallet.Transaction, error) {
	tx, err := s.ledger.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != ownerID {
		s.logger.Warn("Transaction lookup by non-owner", "reference", reference, "actor", ownerID.String())
		return nil, wallet.ErrTransactionNotFound(reference)
	}
	return tx, nil
}

func (s *WalletServiceImpl) Fund(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error) {
	return replayable(s.ledger.FundWallet(ctx, wallet_ledger.FundingRequest{
		OwnerID:     ownerID,
		Amount:      amount,
		Reference:   reference,
		Description: "Wallet funding",
	}))
}

func (s *WalletServiceImpl) Withdraw(ctx context.Context, ownerID uuid.UUID, amount int64, reference string) (*wallet.Transaction, error) {
	return replayable(s.ledger.Withdraw(ctx, wallet_ledger.FundingRequest{
		OwnerID:     ownerID,
		Amount:      amount,
		Reference:   reference,
		Description: "Wallet withdrawal",
	}))
}

func (s *WalletServiceImpl) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount int64, reference, description string) (*wallet_ledger.TransferResult, error) {
	return s.ledger.Transfer(ctx, wallet_ledger.TransferRequest{
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
}

func (s *WalletServiceImpl) QuoteFee(ctx context.Context, txType shared.TransactionType, amount int64) (*FeeQuote, error) {
	if !txType.Valid() {
		return nil, shared.ValidationError{Field: "type", Reason: "unknown transaction type: " + string(txType)}
	}
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	fee, err := s.ledger.CalculateFee(ctx, txType, amount)
	if err != nil {
		return nil, err
	}
	return &FeeQuote{Type: txType, Amount: amount, Fee: fee, Total: amount + fee}, nil
}

// replayable answers a retried request with the transaction its reference already produced
func replayable(tx *wallet.Transaction, err error) (*wallet.Transaction, error) {
	var dup wallet.ErrDuplicateReference
	if errors.As(err, &dup) && dup.Existing != nil {
		return dup.Existing, nil
	}
	return tx, err
}
