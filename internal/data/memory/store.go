// Package memory is an in-process implementation of every repository interface.
// Transactions are serialised by one mutex and roll back by restoring a snapshot,
// which gives engines the same all-or-nothing and row-lock behaviour as Postgres.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/job"
	"github.com/escrow-ledger/internal/domain/outbox"
	"github.com/escrow-ledger/internal/domain/user"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/escrow-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type state struct {
	wallets      map[uuid.UUID]wallet.Wallet
	transactions []wallet.Transaction
	holds        map[uuid.UUID]wallet.Hold
	feeTiers     []wallet.FeeTier
	limits       map[string]wallet.LimitRule
	escrows      map[uuid.UUID]escrow.Escrow
	disputes     map[uuid.UUID]dispute.Dispute
	jobs         map[uuid.UUID]job.Job
	users        []user.User
	outbox       []outbox.Message
	nextOutboxID int64
}

func newState() *state {
	return &state{
		wallets:  make(map[uuid.UUID]wallet.Wallet),
		holds:    make(map[uuid.UUID]wallet.Hold),
		limits:   make(map[string]wallet.LimitRule),
		escrows:  make(map[uuid.UUID]escrow.Escrow),
		disputes: make(map[uuid.UUID]dispute.Dispute),
		jobs:     make(map[uuid.UUID]job.Job),
	}
}

func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[uuid.UUID]wallet.Wallet, len(s.wallets)),
		transactions: append([]wallet.Transaction(nil), s.transactions...),
		holds:        make(map[uuid.UUID]wallet.Hold, len(s.holds)),
		feeTiers:     append([]wallet.FeeTier(nil), s.feeTiers...),
		limits:       make(map[string]wallet.LimitRule, len(s.limits)),
		escrows:      make(map[uuid.UUID]escrow.Escrow, len(s.escrows)),
		disputes:     make(map[uuid.UUID]dispute.Dispute, len(s.disputes)),
		jobs:         make(map[uuid.UUID]job.Job, len(s.jobs)),
		users:        append([]user.User(nil), s.users...),
		outbox:       append([]outbox.Message(nil), s.outbox...),
		nextOutboxID: s.nextOutboxID,
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.holds {
		c.holds[k] = v
	}
	for k, v := range s.limits {
		c.limits[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.disputes {
		c.disputes[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	return c
}

// Store holds all tables in memory
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

var _ persistence.TxManager = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newState()}
}

// ExecuteTx runs fn with every other transaction excluded and restores the
// pre-transaction state if fn fails or panics.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	rollback := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(nil); err != nil {
		rollback()
		return err
	}
	return nil
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// Repository views

func (s *Store) Wallets() *WalletRepository           { return &WalletRepository{s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s} }
func (s *Store) Holds() *HoldRepository               { return &HoldRepository{s} }
func (s *Store) Rules() *RuleRepository               { return &RuleRepository{s} }
func (s *Store) Escrows() *EscrowRepository           { return &EscrowRepository{s} }
func (s *Store) Disputes() *DisputeRepository         { return &DisputeRepository{s} }
func (s *Store) Jobs() *JobRepository                 { return &JobRepository{s} }
func (s *Store) Users() *UserRepository               { return &UserRepository{s} }
func (s *Store) Outbox() *OutboxRepository            { return &OutboxRepository{s} }

// Seeding helpers for reference data owned by other services

// AddJob inserts or replaces a job
func (s *Store) AddJob(j job.Job) {
	s.write(func(d *state) { d.jobs[j.ID] = j })
}

// AddUser appends a user; ListByRole returns users in insertion order
func (s *Store) AddUser(u user.User) {
	s.write(func(d *state) { d.users = append(d.users, u) })
}

// AddFeeTier adds an active fee tier
func (s *Store) AddFeeTier(t wallet.FeeTier) {
	s.write(func(d *state) {
		t.ID = int64(len(d.feeTiers) + 1)
		d.feeTiers = append(d.feeTiers, t)
		sort.SliceStable(d.feeTiers, func(i, j int) bool { return d.feeTiers[i].MinAmount > d.feeTiers[j].MinAmount })
	})
}

// SetLimitRule adds or replaces the rule for its tier and type
func (s *Store) SetLimitRule(r wallet.LimitRule) {
	s.write(func(d *state) { d.limits[limitKey(r.Tier, string(r.TransactionType))] = r })
}

func limitKey(tier, txType string) string {
	return tier + "/" + txType
}
