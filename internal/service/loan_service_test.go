package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/events"
)

// fakeUserRepo is an in-memory user store.
type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(ids ...int64) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int64]*domain.User{}}
	for _, id := range ids {
		r.users[id] = &domain.User{ID: id, Name: "reader", Email: "reader@example.com"}
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = int64(len(r.users) + 1)
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	return &domain.UserPage{}, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

// fakeLoanRepo mimics the transactional repository: one ACTIVE loan per
// book, availability flipped together with loan status.
type fakeLoanRepo struct {
	available map[int64]bool
	loans     map[int64]*domain.Loan
	nextID    int64
}

func newFakeLoanRepo(bookIDs ...int64) *fakeLoanRepo {
	r := &fakeLoanRepo{
		available: map[int64]bool{},
		loans:     map[int64]*domain.Loan{},
	}
	for _, id := range bookIDs {
		r.available[id] = true
	}
	return r
}

func (r *fakeLoanRepo) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *loan
	return &cp, nil
}

func (r *fakeLoanRepo) List(ctx context.Context) ([]*domain.Loan, error) {
	out := make([]*domain.Loan, 0, len(r.loans))
	for _, l := range r.loans {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeLoanRepo) Borrow(ctx context.Context, userID, bookID int64, loanDate, dueDate time.Time) (*domain.Loan, error) {
	avail, ok := r.available[bookID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !avail {
		return nil, domain.ErrBookUnavailable
	}
	r.available[bookID] = false
	r.nextID++
	loan := &domain.Loan{
		ID:       r.nextID,
		UserID:   userID,
		BookID:   bookID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   domain.LoanActive,
	}
	r.loans[loan.ID] = loan
	cp := *loan
	return &cp, nil
}

func (r *fakeLoanRepo) Return(ctx context.Context, id int64, returnDate time.Time) (*domain.Loan, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if loan.Status == domain.LoanReturned {
		return nil, domain.ErrLoanAlreadyReturned
	}
	loan.Status = domain.LoanReturned
	loan.ReturnDate = &returnDate
	r.available[loan.BookID] = true
	cp := *loan
	return &cp, nil
}

func (r *fakeLoanRepo) Update(ctx context.Context, id int64, patch domain.LoanPatch) (*domain.Loan, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.LoanDate != nil {
		loan.LoanDate = *patch.LoanDate
	}
	if patch.ReturnDate != nil {
		loan.ReturnDate = patch.ReturnDate
	}
	if patch.Status != nil && *patch.Status != loan.Status {
		switch *patch.Status {
		case domain.LoanReturned:
			r.available[loan.BookID] = true
		case domain.LoanActive:
			if !r.available[loan.BookID] {
				return nil, domain.ErrBookUnavailable
			}
			r.available[loan.BookID] = false
		}
		loan.Status = *patch.Status
	}
	cp := *loan
	return &cp, nil
}

func (r *fakeLoanRepo) Delete(ctx context.Context, id int64) error {
	loan, ok := r.loans[id]
	if !ok {
		return domain.ErrNotFound
	}
	if loan.Status == domain.LoanActive {
		r.available[loan.BookID] = true
	}
	delete(r.loans, id)
	return nil
}

func (r *fakeLoanRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	for _, l := range r.loans {
		if l.Status == domain.LoanActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeLoanRepo) CountOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	for _, l := range r.loans {
		if l.Overdue(asOf) {
			n++
		}
	}
	return n, nil
}

func newLoanService(loanRepo *fakeLoanRepo, userRepo *fakeUserRepo) *LoanService {
	return NewLoanService(loanRepo, userRepo, nil, events.NewHub(), 14, nil)
}

func TestBorrowSuccess(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.Equal(t, int64(10), loan.BookID)
	assert.False(t, loanRepo.available[10], "book should be unavailable after borrow")
	assert.WithinDuration(t, loan.LoanDate.Add(14*24*time.Hour), loan.DueDate, time.Second)
}

func TestBorrowUnavailableBook(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1, 2))

	_, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), 2, 10)
	require.ErrorIs(t, err, domain.ErrBookUnavailable)

	// The failed borrow must not leave a second loan behind.
	loans, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestBorrowUnknownBook(t *testing.T) {
	svc := newLoanService(newFakeLoanRepo(), newFakeUserRepo(1))

	_, err := svc.Borrow(context.Background(), 1, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBorrowUnknownUser(t *testing.T) {
	svc := newLoanService(newFakeLoanRepo(10), newFakeUserRepo())

	_, err := svc.Borrow(context.Background(), 7, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBorrowInvalidIDs(t *testing.T) {
	svc := newLoanService(newFakeLoanRepo(10), newFakeUserRepo(1))

	_, err := svc.Borrow(context.Background(), 0, 10)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Borrow(context.Background(), 1, -3)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReturnReleasesBook(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	returned, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, loanRepo.available[10], "book should be available after return")
}

func TestDoubleReturn(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	require.ErrorIs(t, err, domain.ErrLoanAlreadyReturned)
}

func TestBorrowAgainAfterReturn(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1, 2))

	first, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := svc.Borrow(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUpdateStatusReleasesBook(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)

	status := domain.LoanReturned
	updated, err := svc.Update(context.Background(), loan.ID, domain.LoanPatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanReturned, updated.Status)
	assert.True(t, loanRepo.available[10])
}

func TestDeleteActiveLoanRestoresAvailability(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)
	require.False(t, loanRepo.available[10])

	require.NoError(t, svc.Delete(context.Background(), loan.ID))
	assert.True(t, loanRepo.available[10], "deleting an active loan should free the book")

	_, err = svc.Get(context.Background(), loan.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteReturnedLoanKeepsAvailability(t *testing.T) {
	loanRepo := newFakeLoanRepo(10)
	svc := newLoanService(loanRepo, newFakeUserRepo(1, 2))

	loan, err := svc.Borrow(context.Background(), 1, 10)
	require.NoError(t, err)
	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	// Someone else borrows the book; deleting the old RETURNED loan must
	// not free it again.
	_, err = svc.Borrow(context.Background(), 2, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), loan.ID))
	assert.False(t, loanRepo.available[10])
}
