package dispute

import (
	"time"

	"github.com/google/uuid"
)

// Status defines dispute lifecycle states
type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusEscalated   Status = "escalated"
	StatusResolved    Status = "resolved"
)

var transitions = map[Status][]Status{
	StatusOpen:        {StatusUnderReview},
	StatusUnderReview: {StatusEscalated, StatusResolved},
	StatusEscalated:   {StatusResolved},
}

// Decision is the verifier's ruling
type Decision string

const (
	DecisionFavorEmployer  Decision = "favor_employer"
	DecisionFavorWorker    Decision = "favor_worker"
	DecisionPartialPayment Decision = "partial_payment"
)

// DefaultPercentage returns the worker share used when the caller leaves it unset
func (d Decision) DefaultPercentage() int {
	switch d {
	case DecisionFavorWorker:
		return 100
	case DecisionPartialPayment:
		return 50
	default:
		return 0
	}
}

// Valid reports whether d is a known decision
func (d Decision) Valid() bool {
	return d == DecisionFavorEmployer || d == DecisionFavorWorker || d == DecisionPartialPayment
}

// Dispute is a contested job awaiting arbitration
type Dispute struct {
	ID                uuid.UUID  `json:"id"`
	JobID             uuid.UUID  `json:"job_id"`
	RaisedBy          uuid.UUID  `json:"raised_by"`
	Against           uuid.UUID  `json:"against"`
	Reason            string     `json:"reason"`
	Description       string     `json:"description"`
	Evidence          []string   `json:"evidence"`
	Status            Status     `json:"status"`
	AssignedVerifier  *uuid.UUID `json:"assigned_verifier,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
	Decision          *Decision  `json:"decision,omitempty"`
	PaymentPercentage *int       `json:"payment_percentage,omitempty"`
	EscalationAdmin   *uuid.UUID `json:"escalation_admin,omitempty"`
	EscalatedAt       *time.Time `json:"escalated_at,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

// New builds an Open dispute
func New(jobID, raisedBy, against uuid.UUID, reason, description string, evidence []string) (*Dispute, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if raisedBy == against {
		return nil, ErrSelfDispute
	}
	if evidence == nil {
		evidence = []string{}
	}

	now := time.Now().UTC()
	return &Dispute{
		ID:          uuid.New(),
		JobID:       jobID,
		RaisedBy:    raisedBy,
		Against:     against,
		Reason:      reason,
		Description: description,
		Evidence:    evidence,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo moves the dispute to next if the move is legal
func (d *Dispute) TransitionTo(next Status, at time.Time) error {
	for _, s := range transitions[d.Status] {
		if s == next {
			d.Status = next
			d.UpdatedAt = at
			if next == StatusResolved {
				d.ResolvedAt = &at
			}
			if next == StatusEscalated {
				d.EscalatedAt = &at
			}
			return nil
		}
	}
	return ErrInvalidStatus{DisputeID: d.ID, Current: d.Status, Wanted: next}
}

// Assign records the arbitrator and opens the review
func (d *Dispute) Assign(verifierID uuid.UUID, at time.Time) error {
	if err := d.TransitionTo(StatusUnderReview, at); err != nil {
		return err
	}
	d.AssignedVerifier = &verifierID
	return nil
}

// IsAssignedTo reports whether the user is the dispute's arbitrator
func (d *Dispute) IsAssignedTo(userID uuid.UUID) bool {
	return d.AssignedVerifier != nil && *d.AssignedVerifier == userID
}

// CoolDownRemaining returns how long until the dispute may be resolved, zero once elapsed
func (d *Dispute) CoolDownRemaining(coolDown time.Duration, now time.Time) time.Duration {
	remaining := d.CreatedAt.Add(coolDown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordDecision stores the ruling without changing status
func (d *Dispute) RecordDecision(decision Decision, pct int, resolution string, at time.Time) {
	d.Decision = &decision
	d.PaymentPercentage = &pct
	d.Resolution = resolution
	d.UpdatedAt = at
}

// IsConfirmed reports whether an admin has signed off on an escalated decision
func (d *Dispute) IsConfirmed() bool {
	return d.EscalationAdmin != nil && d.ConfirmedAt != nil
}

// Confirm records the admin sign-off on the pending decision
func (d *Dispute) Confirm(adminID uuid.UUID, at time.Time) error {
	if d.Status != StatusEscalated {
		return ErrInvalidStatus{DisputeID: d.ID, Current: d.Status, Wanted: StatusEscalated}
	}
	d.EscalationAdmin = &adminID
	d.ConfirmedAt = &at
	d.UpdatedAt = at
	return nil
}

// ResolveInput is the verifier's submission
type ResolveInput struct {
	Resolution        string
	Decision          Decision
	PaymentPercentage *int
}

// Percentage returns the explicit percentage or the decision default
func (in ResolveInput) Percentage() int {
	if in.PaymentPercentage != nil {
		return *in.PaymentPercentage
	}
	return in.Decision.DefaultPercentage()
}

// Validate checks decision and percentage coherence
func (in ResolveInput) Validate() error {
	if !in.Decision.Valid() {
		return ErrInvalidDecision
	}
	pct := in.Percentage()
	switch in.Decision {
	case DecisionFavorEmployer:
		if pct != 0 {
			return ErrInvalidPercentage
		}
	default:
		if pct < 1 || pct > 100 {
			return ErrInvalidPercentage
		}
	}
	return nil
}

// Outcome is the result of a resolve call
type Outcome struct {
	Dispute *Dispute `json:"dispute"`
	// Pending is set when the decision awaits admin verification
	Pending bool `json:"pending_admin_verification"`
}
