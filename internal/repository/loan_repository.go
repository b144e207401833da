package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/libris/internal/domain"
)

// PostgresLoanRepository implements domain.LoanRepository using PostgreSQL.
//
// Every compound operation runs inside one transaction. Availability is
// flipped with conditional updates ("SET available = false WHERE ... AND
// available = true") so a concurrent borrow on the same book sees zero rows
// affected instead of silently double-lending; the partial unique index
// loans_one_active_per_book backstops the same invariant at the storage
// level.
type PostgresLoanRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLoanRepository creates a new loan repository.
func NewPostgresLoanRepository(db *sql.DB, logger *slog.Logger) *PostgresLoanRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLoanRepository{
		db:     db,
		logger: logger,
	}
}

const loanColumns = `id, user_id, book_id, loan_date, due_date, return_date, status`

// GetByID retrieves a loan by id.
func (r *PostgresLoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	loan, err := scanLoan(r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// List returns all loans, newest first.
func (r *PostgresLoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans ORDER BY id DESC`)
	if err != nil {
		r.logger.Error("failed to list loans", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans := []*domain.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

// Borrow atomically claims the book and inserts an ACTIVE loan.
func (r *PostgresLoanRepository) Borrow(ctx context.Context, userID, bookID int64, loanDate, dueDate time.Time) (*domain.Loan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Conditional claim: zero rows means the book is gone or already lent.
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available = false WHERE id = $1 AND available = true`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim book: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if claimed == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check book: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("book %d: %w", bookID, domain.ErrNotFound)
		}
		return nil, domain.ErrBookUnavailable
	}

	loan := &domain.Loan{
		UserID:   userID,
		BookID:   bookID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   domain.LoanActive,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO loans (user_id, book_id, loan_date, due_date, return_date, status)
		VALUES ($1, $2, $3, $4, NULL, $5)
		RETURNING id
	`, userID, bookID, loanDate, dueDate, loan.Status).Scan(&loan.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Another active loan slipped in; the partial index caught it.
			return nil, domain.ErrBookUnavailable
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit borrow: %w", err)
	}

	r.logger.Debug("loan created",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", bookID),
		slog.Int64("user_id", userID),
	)
	return loan, nil
}

// Return atomically marks the loan RETURNED and releases the book.
func (r *PostgresLoanRepository) Return(ctx context.Context, id int64, returnDate time.Time) (*domain.Loan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := lockLoan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.LoanReturned {
		return nil, domain.ErrLoanAlreadyReturned
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE loans SET status = $1, return_date = $2 WHERE id = $3
	`, domain.LoanReturned, returnDate, id); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	if err := releaseBook(ctx, tx, loan.BookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	loan.Status = domain.LoanReturned
	loan.ReturnDate = &returnDate
	return loan, nil
}

// Update applies the patch and derives the book availability side effect
// when the status changes. Status validity is checked by the caller; this
// layer only moves state.
func (r *PostgresLoanRepository) Update(ctx context.Context, id int64, patch domain.LoanPatch) (*domain.Loan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := lockLoan(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := loan.Status
	if patch.LoanDate != nil {
		loan.LoanDate = *patch.LoanDate
	}
	if patch.ReturnDate != nil {
		loan.ReturnDate = patch.ReturnDate
	}
	if patch.Status != nil {
		loan.Status = *patch.Status
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE loans SET loan_date = $1, return_date = $2, status = $3 WHERE id = $4
	`, loan.LoanDate, loan.ReturnDate, loan.Status, id); err != nil {
		if isUniqueViolation(err) {
			// Re-activating while another active loan holds the book.
			return nil, domain.ErrBookUnavailable
		}
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}

	if patch.Status != nil && *patch.Status != previousStatus {
		switch *patch.Status {
		case domain.LoanReturned:
			if err := releaseBook(ctx, tx, loan.BookID); err != nil {
				return nil, err
			}
		case domain.LoanActive:
			result, err := tx.ExecContext(ctx,
				`UPDATE books SET available = false WHERE id = $1 AND available = true`, loan.BookID)
			if err != nil {
				return nil, fmt.Errorf("failed to claim book: %w", err)
			}
			if _, err := result.RowsAffected(); err != nil {
				return nil, fmt.Errorf("failed to check rows affected: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit loan update: %w", err)
	}

	return loan, nil
}

// Delete removes a loan, restoring the book when the loan was still ACTIVE.
func (r *PostgresLoanRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := lockLoan(ctx, tx, id)
	if err != nil {
		return err
	}

	if loan.Status == domain.LoanActive {
		if err := releaseBook(ctx, tx, loan.BookID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit loan delete: %w", err)
	}

	return nil
}

// CountActive returns the number of ACTIVE loans.
func (r *PostgresLoanRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM loans WHERE status = $1`, domain.LoanActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active loans: %w", err)
	}
	return n, nil
}

// CountOverdue returns the number of ACTIVE loans past due as of asOf.
func (r *PostgresLoanRepository) CountOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM loans WHERE status = $1 AND due_date < $2`,
		domain.LoanActive, asOf).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue loans: %w", err)
	}
	return n, nil
}

// lockLoan loads a loan row under FOR UPDATE so concurrent mutations on the
// same loan serialize.
func lockLoan(ctx context.Context, tx *sql.Tx, id int64) (*domain.Loan, error) {
	loan, err := scanLoan(tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}
	return loan, nil
}

// releaseBook marks the loan's book available again. Zero rows affected on
// the existence check means the loan references a book that vanished, which
// is a data-integrity failure surfaced as an internal error.
func releaseBook(ctx context.Context, tx *sql.Tx, bookID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available = true WHERE id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("failed to release book: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("loan references missing book %d", bookID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	loan := &domain.Loan{}
	var returnDate sql.NullTime

	err := row.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.BookID,
		&loan.LoanDate,
		&loan.DueDate,
		&returnDate,
		&loan.Status,
	)
	if err != nil {
		return nil, err
	}

	if returnDate.Valid {
		loan.ReturnDate = &returnDate.Time
	}
	return loan, nil
}
