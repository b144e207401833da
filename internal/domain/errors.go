package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repository, service and handler layers.
// Handlers translate these to HTTP status codes in exactly one place.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or missing request data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a state conflict (duplicate key, concurrent mutation).
	ErrConflict = errors.New("conflict")

	// ErrEmailTaken indicates a unique email constraint violation.
	ErrEmailTaken = errors.New("email already exists")

	// ErrBookUnavailable indicates the book already has an active loan.
	ErrBookUnavailable = errors.New("book is not available")

	// ErrLoanAlreadyReturned indicates a return on a loan already returned.
	ErrLoanAlreadyReturned = errors.New("loan is already returned")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden indicates the caller's role lacks permission.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates a temporary login lock.
	ErrRateLimited = errors.New("too many attempts")
)

// InvalidInputf wraps ErrInvalidInput with a formatted detail message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
