package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LoanStatus is the closed set of loan states. Unknown values are rejected
// at the boundary before any transition logic runs.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

// ParseLoanStatus normalizes a status string case-insensitively and rejects
// anything outside {ACTIVE, RETURNED}.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LoanActive):
		return LoanActive, nil
	case string(LoanReturned):
		return LoanReturned, nil
	default:
		return "", fmt.Errorf("%w: unknown loan status %q", ErrInvalidInput, s)
	}
}

// Loan links one user to one book for a borrowing period.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	BookID     int64      `json:"bookId"`
	LoanDate   time.Time  `json:"loanDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate"`
	Status     LoanStatus `json:"status"`
}

// Overdue reports whether an active loan is past its due date.
func (l *Loan) Overdue(asOf time.Time) bool {
	return l.Status == LoanActive && asOf.After(l.DueDate)
}

// LoanPatch carries the optional fields of a loan update. Nil means
// "leave unchanged".
type LoanPatch struct {
	LoanDate   *time.Time
	ReturnDate *time.Time
	Status     *LoanStatus
}

// LoanRepository defines data access for loans. Borrow, Return, Update and
// Delete are compound read-check-write sequences; implementations must run
// each inside a single transaction so the book availability flag stays
// consistent with loan status under concurrent requests.
type LoanRepository interface {
	GetByID(ctx context.Context, id int64) (*Loan, error)
	List(ctx context.Context) ([]*Loan, error)

	// Borrow atomically marks the book unavailable and inserts an ACTIVE
	// loan. Returns ErrNotFound if the book does not exist and
	// ErrBookUnavailable if it already has an active loan.
	Borrow(ctx context.Context, userID, bookID int64, loanDate, dueDate time.Time) (*Loan, error)

	// Return atomically marks the loan RETURNED and the book available.
	// Returns ErrLoanAlreadyReturned if the loan is not active.
	Return(ctx context.Context, id int64, returnDate time.Time) (*Loan, error)

	// Update applies the patch and derives the availability side effect
	// when the status changes.
	Update(ctx context.Context, id int64, patch LoanPatch) (*Loan, error)

	// Delete removes the loan, restoring availability if it was ACTIVE.
	Delete(ctx context.Context, id int64) error

	CountActive(ctx context.Context) (int64, error)
	CountOverdue(ctx context.Context, asOf time.Time) (int64, error)
}
