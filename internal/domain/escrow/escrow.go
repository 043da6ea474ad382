package escrow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status defines escrow lifecycle states
type Status string

const (
	StatusCreated        Status = "created"
	StatusFunded         Status = "funded"
	StatusPartialRelease Status = "partial_release"
	StatusCompleted      Status = "completed"
	StatusDisputed       Status = "disputed"
	StatusRefunded       Status = "refunded"
	StatusCancelled      Status = "cancelled"
)

// transitions lists the only legal moves. PartialRelease may repeat while funds remain.
var transitions = map[Status][]Status{
	StatusCreated:        {StatusFunded, StatusCancelled},
	StatusFunded:         {StatusPartialRelease, StatusCompleted, StatusDisputed},
	StatusPartialRelease: {StatusPartialRelease, StatusCompleted, StatusDisputed},
	StatusDisputed:       {StatusRefunded, StatusCompleted},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Escrow tracks funds committed to one job. Funds live in the employer's wallet as a hold.
type Escrow struct {
	ID                       uuid.UUID  `json:"id"`
	JobID                    uuid.UUID  `json:"job_id"`
	EmployerID               uuid.UUID  `json:"employer_id"`
	WorkerID                 *uuid.UUID `json:"worker_id,omitempty"`
	Amount                   int64      `json:"amount"`
	PlatformFee              int64      `json:"platform_fee"`
	HeldAmount               int64      `json:"held_amount"`
	ReleasedAmount           int64      `json:"released_amount"`
	ReleaseCount             int        `json:"release_count"`
	Status                   Status     `json:"status"`
	HoldID                   *uuid.UUID `json:"hold_id,omitempty"`
	DisputeID                *uuid.UUID `json:"dispute_id,omitempty"`
	PartialPaymentAllowed    bool       `json:"partial_payment_allowed"`
	PartialPaymentPercentage int        `json:"partial_payment_percentage"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	FundedAt                 *time.Time `json:"funded_at,omitempty"`
	CompletedAt              *time.Time `json:"completed_at,omitempty"`
	// Version counts persisted updates; writes based on an older read are rejected
	Version int64 `json:"version"`
}

// PartialPaymentConfig controls whether an escrow may pay out in portions
type PartialPaymentConfig struct {
	Allowed    bool `json:"allowed"`
	Percentage int  `json:"percentage"`
}

// New builds a Created escrow for the job
func New(jobID, employerID uuid.UUID, amount, fee int64, partial PartialPaymentConfig) (*Escrow, error) {
	if jobID == uuid.Nil || employerID == uuid.Nil {
		return nil, ErrMissingParty
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fee < 0 {
		return nil, ErrInvalidFee
	}
	if partial.Percentage < 0 || partial.Percentage > 100 {
		return nil, ErrInvalidPercentage
	}

	now := time.Now().UTC()
	return &Escrow{
		ID:                       uuid.New(),
		JobID:                    jobID,
		EmployerID:               employerID,
		Amount:                   amount,
		PlatformFee:              fee,
		Status:                   StatusCreated,
		PartialPaymentAllowed:    partial.Allowed,
		PartialPaymentPercentage: partial.Percentage,
		CreatedAt:                now,
		UpdatedAt:                now,
	}, nil
}

// TransitionTo moves the escrow to the next status if the move is legal
func (e *Escrow) TransitionTo(next Status, at time.Time) error {
	if !CanTransition(e.Status, next) {
		return ErrInvalidTransition{EscrowID: e.ID, From: e.Status, To: next}
	}
	e.Status = next
	e.UpdatedAt = at
	switch next {
	case StatusFunded:
		e.FundedAt = &at
	case StatusCompleted, StatusRefunded, StatusCancelled:
		e.CompletedAt = &at
	}
	return nil
}

// Total is the amount reserved at funding time
func (e *Escrow) Total() int64 {
	return e.Amount + e.PlatformFee
}

// Payable is what the worker can still receive from the current hold. It is not
// Amount minus ReleasedAmount: a compensated round returns its capture to the employer's
// available balance, so HeldAmount, and with it Payable, stays smaller for good.
func (e *Escrow) Payable() int64 {
	p := e.HeldAmount - e.PlatformFee
	if p < 0 {
		return 0
	}
	return p
}

// PartialAmount computes a release of pct percent of the original amount, capped at what is still payable
func (e *Escrow) PartialAmount(pct int) int64 {
	amount := e.Amount * int64(pct) / 100
	if amount > e.Payable() {
		amount = e.Payable()
	}
	return amount
}

// StepReference builds the deterministic ledger reference for one saga step
func (e *Escrow) StepReference(round int, step string) string {
	return fmt.Sprintf("ESC-%s-R%d-%s", e.ID, round, step)
}

// Saga step suffixes
const (
	StepCapture    = "CAP"
	StepPay        = "PAY"
	StepCompensate = "COMP"
	StepFee        = "FEE"
	StepFeeCredit  = "FEE-CR"
	StepRefund     = "RFND"
)

// Resolution is the fund outcome of a dispute
type Resolution struct {
	FavorWorker bool
	// WorkerPercentage of the original amount paid to the worker when FavorWorker is set
	WorkerPercentage int
}
