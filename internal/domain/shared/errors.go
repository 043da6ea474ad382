package shared

import (
	"errors"
	"fmt"
)

// Error categories. Concrete error types match one of these through errors.Is.
var (
	ErrValidation                   = errors.New("validation error")
	ErrInsufficientFunds            = errors.New("insufficient funds")
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	ErrDuplicateReference           = errors.New("duplicate reference")
	ErrInvalidEscrowTransition      = errors.New("invalid escrow transition")
	ErrInvalidDisputeStatus         = errors.New("invalid dispute status")
	ErrUnauthorized                 = errors.New("unauthorized")
	ErrNotFound                     = errors.New("not found")
	ErrTransientStore               = errors.New("transient store error")
)

// ValidationError reports a rejected input
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

// Is implements the errors.Is interface for ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is implements the errors.Is interface for NotFoundError.
// A target with an empty ID matches any NotFoundError of the same resource.
func (e NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Resource != e.Resource {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

// UnauthorizedError reports an actor attempting an action outside its role
type UnauthorizedError struct {
	ActorID string
	Action  string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s", e.ActorID, e.Action)
}

// Is implements the errors.Is interface for UnauthorizedError
func (e UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// TransientStoreError wraps a store failure that is safe to retry with the same reference
type TransientStoreError struct {
	Op  string
	Err error
}

func (e TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e TransientStoreError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for TransientStoreError
func (e TransientStoreError) Is(target error) bool {
	return target == ErrTransientStore
}
