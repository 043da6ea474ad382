package escrow

import (
	"fmt"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrMissingParty          = shared.ValidationError{Field: "job_id", Reason: "and employer_id are required"}
	ErrInvalidAmount         = shared.ValidationError{Field: "amount", Reason: "must be positive"}
	ErrInvalidFee            = shared.ValidationError{Field: "fee", Reason: "cannot be negative"}
	ErrInvalidPercentage     = shared.ValidationError{Field: "percentage", Reason: "must be between 1 and 100"}
	ErrPartialNotAllowed     = shared.ValidationError{Field: "partial_payment", Reason: "is not allowed for this escrow"}
	ErrWorkerNotAssigned     = shared.ValidationError{Field: "worker_id", Reason: "is not assigned"}
	ErrNothingToRelease      = shared.ValidationError{Field: "held_amount", Reason: "has nothing left to release"}
	ErrPlatformOwnerRequired = shared.ValidationError{Field: "platform_owner", Reason: "is not configured"}
)

// ErrEscrowNotFound returns the not-found error for an escrow looked up by id or job
func ErrEscrowNotFound(key uuid.UUID) error {
	return shared.NotFoundError{Resource: "escrow", ID: key.String()}
}

// ErrInvalidTransition indicates an illegal state change
type ErrInvalidTransition struct {
	EscrowID uuid.UUID
	From     Status
	To       Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid escrow transition for %s: %s -> %s", e.EscrowID, e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	return target == shared.ErrInvalidEscrowTransition
}

// ErrDuplicateEscrow indicates the job already has an escrow
type ErrDuplicateEscrow struct {
	JobID uuid.UUID
}

func (e ErrDuplicateEscrow) Error() string {
	return "escrow already exists for job: " + e.JobID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEscrow
func (e ErrDuplicateEscrow) Is(target error) bool {
	return target == shared.ErrValidation
}

// ErrStaleEscrow indicates the escrow changed after it was read, usually by a concurrent release
type ErrStaleEscrow struct {
	EscrowID uuid.UUID
	Version  int64
}

func (e ErrStaleEscrow) Error() string {
	return fmt.Sprintf("escrow %s was modified concurrently (read at version %d)", e.EscrowID, e.Version)
}

// Is implements the errors.Is interface for ErrStaleEscrow
func (e ErrStaleEscrow) Is(target error) bool {
	return target == shared.ErrInvalidEscrowTransition
}

// ErrStepMismatch indicates a saga step reference was already used for a different movement,
// so the round was started by another request with other parameters
type ErrStepMismatch struct {
	Reference string
	Requested int64
	Recorded  int64
}

func (e ErrStepMismatch) Error() string {
	return fmt.Sprintf("escrow step %s already recorded for %d, requested %d", e.Reference, e.Recorded, e.Requested)
}

// Is implements the errors.Is interface for ErrStepMismatch
func (e ErrStepMismatch) Is(target error) bool {
	return target == shared.ErrInvalidEscrowTransition
}
