package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/events"
	"github.com/yourorg/libris/internal/observability/metrics"
)

// BookInvalidator drops cached book reads after the loan workflow flips a
// book's availability.
type BookInvalidator interface {
	InvalidateBook(ctx context.Context, bookID int64)
}

// LoanService implements the borrow/return/update/delete workflow. It keeps
// Loan.Status and Book.Available consistent by delegating every compound
// mutation to a single repository transaction, and publishes lifecycle
// events to the activity feed.
type LoanService struct {
	loanRepo    domain.LoanRepository
	userRepo    domain.UserRepository
	invalidator BookInvalidator
	hub         *events.Hub
	loanPeriod  time.Duration
	logger      *slog.Logger
}

// NewLoanService creates a new loan service. loanPeriodDays controls the due
// date assigned on borrow. invalidator and hub may be nil.
func NewLoanService(
	loanRepo domain.LoanRepository,
	userRepo domain.UserRepository,
	invalidator BookInvalidator,
	hub *events.Hub,
	loanPeriodDays int,
	logger *slog.Logger,
) *LoanService {
	if logger == nil {
		logger = slog.Default()
	}
	if loanPeriodDays <= 0 {
		loanPeriodDays = 14
	}

	return &LoanService{
		loanRepo:    loanRepo,
		userRepo:    userRepo,
		invalidator: invalidator,
		hub:         hub,
		loanPeriod:  time.Duration(loanPeriodDays) * 24 * time.Hour,
		logger:      logger,
	}
}

// Get retrieves a loan by id.
func (s *LoanService) Get(ctx context.Context, id int64) (*domain.Loan, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: loan id must be positive", domain.ErrInvalidInput)
	}
	return s.loanRepo.GetByID(ctx, id)
}

// List returns all loans.
func (s *LoanService) List(ctx context.Context) ([]*domain.Loan, error) {
	return s.loanRepo.List(ctx)
}

// Borrow creates an ACTIVE loan for userID on bookID and marks the book
// unavailable, all in one atomic step.
func (s *LoanService) Borrow(ctx context.Context, userID, bookID int64) (*domain.Loan, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: valid user id is required", domain.ErrInvalidInput)
	}
	if bookID <= 0 {
		return nil, fmt.Errorf("%w: valid book id is required", domain.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}

	now := time.Now()
	loan, err := s.loanRepo.Borrow(ctx, userID, bookID, now, now.Add(s.loanPeriod))
	if err != nil {
		metrics.ObserveLoanOperation("borrow", "error")
		return nil, err
	}

	metrics.ObserveLoanOperation("borrow", "success")
	metrics.IncrementActiveLoans()
	s.afterMutation(ctx, events.TypeBorrowed, loan)

	s.logger.Info("book borrowed",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", bookID),
		slog.Int64("user_id", userID),
	)
	return loan, nil
}

// Return marks the loan RETURNED and releases the book.
func (s *LoanService) Return(ctx context.Context, id int64) (*domain.Loan, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: loan id must be positive", domain.ErrInvalidInput)
	}

	loan, err := s.loanRepo.Return(ctx, id, time.Now())
	if err != nil {
		metrics.ObserveLoanOperation("return", "error")
		return nil, err
	}

	metrics.ObserveLoanOperation("return", "success")
	metrics.DecrementActiveLoans()
	s.afterMutation(ctx, events.TypeReturned, loan)

	s.logger.Info("book returned",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", loan.BookID),
	)
	return loan, nil
}

// Update applies a partial loan update. The patch's status has already been
// parsed against the closed {ACTIVE, RETURNED} set; anything else never
// reaches this point.
func (s *LoanService) Update(ctx context.Context, id int64, patch domain.LoanPatch) (*domain.Loan, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: loan id must be positive", domain.ErrInvalidInput)
	}

	loan, err := s.loanRepo.Update(ctx, id, patch)
	if err != nil {
		metrics.ObserveLoanOperation("update", "error")
		return nil, err
	}

	metrics.ObserveLoanOperation("update", "success")
	s.afterMutation(ctx, events.TypeUpdated, loan)
	return loan, nil
}

// Delete removes a loan, restoring book availability if it was ACTIVE.
func (s *LoanService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: loan id must be positive", domain.ErrInvalidInput)
	}

	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.loanRepo.Delete(ctx, id); err != nil {
		metrics.ObserveLoanOperation("delete", "error")
		return err
	}

	metrics.ObserveLoanOperation("delete", "success")
	if loan.Status == domain.LoanActive {
		metrics.DecrementActiveLoans()
	}
	s.afterMutation(ctx, events.TypeDeleted, loan)

	s.logger.Info("loan deleted",
		slog.Int64("loan_id", id),
		slog.String("status", string(loan.Status)),
	)
	return nil
}

func (s *LoanService) afterMutation(ctx context.Context, eventType string, loan *domain.Loan) {
	if s.invalidator != nil {
		s.invalidator.InvalidateBook(ctx, loan.BookID)
	}
	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:   eventType,
			LoanID: loan.ID,
			BookID: loan.BookID,
			UserID: loan.UserID,
			At:     time.Now(),
		})
	}
}
