package memory

import (
	"context"
	"sort"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository is the in-memory wallet.Repository
type WalletRepository struct{ s *Store }

func (r *WalletRepository) WithTx(pgx.Tx) wallet.Repository { return r }

func (r *WalletRepository) Create(_ context.Context, w *wallet.Wallet) (err error) {
	r.s.write(func(d *state) {
		for _, existing := range d.wallets {
			if existing.OwnerID == w.OwnerID {
				err = wallet.ErrDuplicateWallet{OwnerID: w.OwnerID}
				return
			}
		}
		d.wallets[w.ID] = *w
	})
	return err
}

func (r *WalletRepository) GetByOwner(_ context.Context, ownerID uuid.UUID) (*wallet.Wallet, error) {
	var found *wallet.Wallet
	r.s.read(func(d *state) {
		for _, w := range d.wallets {
			if w.OwnerID == ownerID {
				w := w
				found = &w
				return
			}
		}
	})
	if found == nil {
		return nil, wallet.ErrWalletNotFound(ownerID)
	}
	return found, nil
}

func (r *WalletRepository) GetByID(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var found *wallet.Wallet
	r.s.read(func(d *state) {
		if w, ok := d.wallets[id]; ok {
			found = &w
		}
	})
	if found == nil {
		return nil, wallet.ErrWalletNotFound(id)
	}
	return found, nil
}

// LockByOwner reads the wallet. Transactions are already exclusive.
func (r *WalletRepository) LockByOwner(ctx context.Context, ownerID uuid.UUID) (*wallet.Wallet, error) {
	return r.GetByOwner(ctx, ownerID)
}

func (r *WalletRepository) UpdateBalances(_ context.Context, w *wallet.Wallet) (err error) {
	r.s.write(func(d *state) {
		existing, ok := d.wallets[w.ID]
		if !ok {
			err = wallet.ErrWalletNotFound(w.OwnerID)
			return
		}
		existing.Balance = w.Balance
		existing.AvailableBalance = w.AvailableBalance
		existing.TotalDeposits = w.TotalDeposits
		existing.TotalWithdrawals = w.TotalWithdrawals
		existing.UpdatedAt = w.UpdatedAt
		existing.LastActivityAt = w.LastActivityAt
		d.wallets[w.ID] = existing
	})
	return err
}

// TransactionRepository is the in-memory wallet.TransactionRepository
type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) WithTx(pgx.Tx) wallet.TransactionRepository { return r }

func (r *TransactionRepository) Create(_ context.Context, t *wallet.Transaction) (err error) {
	r.s.write(func(d *state) {
		for _, existing := range d.transactions {
			if existing.Reference == t.Reference {
				err = wallet.ErrDuplicateReference{Reference: t.Reference}
				return
			}
		}
		d.transactions = append(d.transactions, *t)
	})
	return err
}

func (r *TransactionRepository) GetByReference(_ context.Context, reference string) (*wallet.Transaction, error) {
	var found *wallet.Transaction
	r.s.read(func(d *state) {
		for _, t := range d.transactions {
			if t.Reference == reference {
				t := t
				found = &t
				return
			}
		}
	})
	if found == nil {
		return nil, wallet.ErrTransactionNotFound(reference)
	}
	return found, nil
}

func (r *TransactionRepository) ListByWallet(_ context.Context, walletID uuid.UUID, filter wallet.TransactionFilter, page wallet.Pagination) ([]*wallet.Transaction, int64, error) {
	page = page.Normalize()
	var matched []*wallet.Transaction
	r.s.read(func(d *state) {
		for _, t := range d.transactions {
			if t.WalletID != walletID || !matches(t, filter) {
				continue
			}
			t := t
			matched = append(matched, &t)
		}
	})

	// insertion order breaks ties between equal timestamps, newest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if page.Offset >= len(matched) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], total, nil
}

func matches(t wallet.Transaction, f wallet.TransactionFilter) bool {
	switch {
	case f.Type != nil && t.Type != *f.Type:
		return false
	case f.Status != nil && t.Status != *f.Status:
		return false
	case f.JobID != nil && (t.JobID == nil || *t.JobID != *f.JobID):
		return false
	case f.From != nil && t.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !t.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

func (r *TransactionRepository) SumOutgoingSince(_ context.Context, walletID uuid.UUID, txType shared.TransactionType, since time.Time) (int64, error) {
	var sum int64
	r.s.read(func(d *state) {
		for _, t := range d.transactions {
			if t.WalletID == walletID && t.Type == txType && t.Status == shared.TransactionStatusCompleted &&
				t.BalanceAfter < t.BalanceBefore && !t.CreatedAt.Before(since) {
				sum += t.Amount
			}
		}
	})
	return sum, nil
}

func (r *TransactionRepository) CountByStatus(_ context.Context, walletID uuid.UUID, status shared.TransactionStatus) (int64, error) {
	var n int64
	r.s.read(func(d *state) {
		for _, t := range d.transactions {
			if t.WalletID == walletID && t.Status == status {
				n++
			}
		}
	})
	return n, nil
}

// HoldRepository is the in-memory wallet.HoldRepository
type HoldRepository struct{ s *Store }

func (r *HoldRepository) WithTx(pgx.Tx) wallet.HoldRepository { return r }

func (r *HoldRepository) Create(_ context.Context, h *wallet.Hold) error {
	r.s.write(func(d *state) { d.holds[h.ID] = *h })
	return nil
}

func (r *HoldRepository) GetByID(_ context.Context, id uuid.UUID) (*wallet.Hold, error) {
	var found *wallet.Hold
	r.s.read(func(d *state) {
		if h, ok := d.holds[id]; ok {
			found = &h
		}
	})
	if found == nil {
		return nil, wallet.ErrHoldNotFound(id)
	}
	return found, nil
}

func (r *HoldRepository) LockByID(ctx context.Context, id uuid.UUID) (*wallet.Hold, error) {
	return r.GetByID(ctx, id)
}

func (r *HoldRepository) UpdateStatus(_ context.Context, h *wallet.Hold) (err error) {
	r.s.write(func(d *state) {
		existing, ok := d.holds[h.ID]
		if !ok {
			err = wallet.ErrHoldNotFound(h.ID)
			return
		}
		existing.Status = h.Status
		existing.ReleasedAt = h.ReleasedAt
		d.holds[h.ID] = existing
	})
	return err
}

func (r *HoldRepository) ListExpired(_ context.Context, before time.Time, limit int) ([]*wallet.Hold, error) {
	var expired []*wallet.Hold
	r.s.read(func(d *state) {
		for _, h := range d.holds {
			if h.IsActive() && h.ExpiresAt != nil && !h.ExpiresAt.After(before) {
				h := h
				expired = append(expired, &h)
			}
		}
	})
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *HoldRepository) CountActive(_ context.Context, walletID uuid.UUID) (int64, error) {
	var n int64
	r.s.read(func(d *state) {
		for _, h := range d.holds {
			if h.WalletID == walletID && h.IsActive() {
				n++
			}
		}
	})
	return n, nil
}

// ActiveHoldTotal sums the wallet's active holds
func (s *Store) ActiveHoldTotal(walletID uuid.UUID) int64 {
	var total int64
	s.read(func(d *state) {
		for _, h := range d.holds {
			if h.WalletID == walletID && h.IsActive() {
				total += h.Amount
			}
		}
	})
	return total
}

// RuleRepository is the in-memory wallet.RuleRepository
type RuleRepository struct{ s *Store }

func (r *RuleRepository) FindFeeTier(_ context.Context, txType shared.TransactionType, amount int64) (*wallet.FeeTier, error) {
	var found *wallet.FeeTier
	r.s.read(func(d *state) {
		for _, t := range d.feeTiers {
			if t.TransactionType == txType && t.MinAmount <= amount && amount <= t.MaxAmount {
				t := t
				found = &t
				return
			}
		}
	})
	return found, nil
}

func (r *RuleRepository) FindLimitRule(_ context.Context, tier string, txType shared.TransactionType) (*wallet.LimitRule, error) {
	var found *wallet.LimitRule
	r.s.read(func(d *state) {
		if rule, ok := d.limits[limitKey(tier, string(txType))]; ok {
			found = &rule
		}
	})
	return found, nil
}
