package dispute

import (
	"fmt"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyReason       = shared.ValidationError{Field: "reason", Reason: "cannot be empty"}
	ErrSelfDispute       = shared.ValidationError{Field: "against", Reason: "must differ from raised_by"}
	ErrInvalidDecision   = shared.ValidationError{Field: "decision", Reason: "is not recognised"}
	ErrInvalidPercentage = shared.ValidationError{Field: "payment_percentage", Reason: "does not match the decision"}
	ErrNoArbitrator      = shared.NotFoundError{Resource: "arbitrator", ID: "available"}
)

// ErrDisputeNotFound returns the not-found error for a dispute
func ErrDisputeNotFound(id uuid.UUID) error {
	return shared.NotFoundError{Resource: "dispute", ID: id.String()}
}

// ErrInvalidStatus indicates an operation attempted in the wrong dispute state
type ErrInvalidStatus struct {
	DisputeID uuid.UUID
	Current   Status
	Wanted    Status
}

func (e ErrInvalidStatus) Error() string {
	return fmt.Sprintf("dispute %s is %s, cannot move to %s", e.DisputeID, e.Current, e.Wanted)
}

// Is implements the errors.Is interface for ErrInvalidStatus
func (e ErrInvalidStatus) Is(target error) bool {
	return target == shared.ErrInvalidDisputeStatus
}

// ErrCoolDown indicates a resolve attempted before the cool-down elapsed
type ErrCoolDown struct {
	DisputeID uuid.UUID
	Remaining time.Duration
}

func (e ErrCoolDown) Error() string {
	return fmt.Sprintf("dispute %s is in cool-down for another %s", e.DisputeID, e.Remaining.Round(time.Second))
}

// Is implements the errors.Is interface for ErrCoolDown
func (e ErrCoolDown) Is(target error) bool {
	return target == shared.ErrInvalidDisputeStatus
}

// ErrNotParticipant indicates the raiser or respondent is not part of the job
type ErrNotParticipant struct {
	UserID uuid.UUID
	JobID  uuid.UUID
}

func (e ErrNotParticipant) Error() string {
	return fmt.Sprintf("user %s is not a participant of job %s", e.UserID, e.JobID)
}

// Is implements the errors.Is interface for ErrNotParticipant
func (e ErrNotParticipant) Is(target error) bool {
	return target == shared.ErrUnauthorized
}
