package balancer

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. Operations wrap them with
// the session id; match with errors.Is.
var (
	// Session errors
	ErrSessionNotFound      = errors.New("balancer: session not found")
	ErrSessionAlreadyExists = errors.New("balancer: session already exists")
	ErrNoParticipants       = errors.New("balancer: session needs at least one participant")
	ErrDuplicateParticipant = errors.New("balancer: duplicate participant")
	ErrInvalidAddress       = errors.New("balancer: invalid address")
	ErrWrongIDMode          = errors.New("balancer: operation not available in this id mode")

	// Membership errors
	ErrNotInvited    = errors.New("balancer: not invited to this session")
	ErrAlreadyJoined = errors.New("balancer: already joined this session")

	// Settlement errors
	ErrNotActive      = errors.New("balancer: session is not active")
	ErrAlreadySettled = fmt.Errorf("%w: already settled", ErrNotActive)
	ErrLengthMismatch = errors.New("balancer: expenses length does not match participant count")
	ErrNotSettled     = errors.New("balancer: session not settled")
	ErrNotParticipant = errors.New("balancer: not a participant of this session")

	// Amount errors
	ErrCurrencyMismatch = errors.New("balancer: currency mismatch")
	ErrNegativeAmount   = errors.New("balancer: negative amount")
	ErrAmountOverflow   = errors.New("balancer: amount overflow")

	// Store errors
	ErrStoreClosed     = errors.New("balancer: store is closed")
	ErrMigrationFailed = errors.New("balancer: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("balancer: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "balancer: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("balancer: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsMembershipError returns true if a join was refused.
func IsMembershipError(err error) bool {
	return errors.Is(err, ErrNotInvited) ||
		errors.Is(err, ErrAlreadyJoined)
}

// IsSettlementError returns true if a checkout or balance query was refused.
func IsSettlementError(err error) bool {
	return errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrNotSettled) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrAmountOverflow)
}

func sessionErr(sessionID fmt.Stringer, err error) error {
	return fmt.Errorf("session %s: %w", sessionID, err)
}
