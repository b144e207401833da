package test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/events"
	"github.com/yourorg/libris/internal/handler"
	"github.com/yourorg/libris/internal/infrastructure/logger"
	"github.com/yourorg/libris/internal/security/auth"
	"github.com/yourorg/libris/internal/service"
)

// memStore holds books, users and loans for in-process API tests. Borrow
// and return flip availability the way the SQL transactions do.
type memStore struct {
	books  map[int64]*domain.Book
	users  map[int64]*domain.User
	loans  map[int64]*domain.Loan
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		books: map[int64]*domain.Book{},
		users: map[int64]*domain.User{},
		loans: map[int64]*domain.Loan{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memBookRepo struct{ store *memStore }

func (r *memBookRepo) Create(ctx context.Context, book *domain.Book) error {
	book.ID = r.store.id()
	book.Available = true
	cp := *book
	r.store.books[book.ID] = &cp
	return nil
}

func (r *memBookRepo) CreateMany(ctx context.Context, books []*domain.Book) error {
	for _, b := range books {
		if err := r.Create(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *memBookRepo) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	b, ok := r.store.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookRepo) List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error) {
	content := make([]*domain.Book, 0, len(r.store.books))
	for _, b := range r.store.books {
		cp := *b
		content = append(content, &cp)
	}
	return &domain.BookPage{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: int64(len(content)),
		TotalPages:    1,
	}, nil
}

func (r *memBookRepo) Update(ctx context.Context, book *domain.Book) error {
	if _, ok := r.store.books[book.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *book
	r.store.books[book.ID] = &cp
	return nil
}

func (r *memBookRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.store.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.books, id)
	return nil
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	user.ID = r.store.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.store.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	content := make([]*domain.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		cp := *u
		content = append(content, &cp)
	}
	return &domain.UserPage{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: int64(len(content)),
		TotalPages:    1,
	}, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	if _, ok := r.store.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	r.store.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.store.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.users, id)
	return nil
}

type memLoanRepo struct{ store *memStore }

func (r *memLoanRepo) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	l, ok := r.store.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLoanRepo) List(ctx context.Context) ([]*domain.Loan, error) {
	out := make([]*domain.Loan, 0, len(r.store.loans))
	for _, l := range r.store.loans {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memLoanRepo) Borrow(ctx context.Context, userID, bookID int64, loanDate, dueDate time.Time) (*domain.Loan, error) {
	book, ok := r.store.books[bookID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !book.Available {
		return nil, domain.ErrBookUnavailable
	}
	book.Available = false
	loan := &domain.Loan{
		ID:       r.store.id(),
		UserID:   userID,
		BookID:   bookID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   domain.LoanActive,
	}
	r.store.loans[loan.ID] = loan
	cp := *loan
	return &cp, nil
}

func (r *memLoanRepo) Return(ctx context.Context, id int64, returnDate time.Time) (*domain.Loan, error) {
	loan, ok := r.store.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if loan.Status == domain.LoanReturned {
		return nil, domain.ErrLoanAlreadyReturned
	}
	loan.Status = domain.LoanReturned
	loan.ReturnDate = &returnDate
	if book, ok := r.store.books[loan.BookID]; ok {
		book.Available = true
	}
	cp := *loan
	return &cp, nil
}

func (r *memLoanRepo) Update(ctx context.Context, id int64, patch domain.LoanPatch) (*domain.Loan, error) {
	loan, ok := r.store.loans[id]
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
		book := r.store.books[loan.BookID]
		switch *patch.Status {
		case domain.LoanReturned:
			if book != nil {
				book.Available = true
			}
		case domain.LoanActive:
			if book == nil || !book.Available {
				return nil, domain.ErrBookUnavailable
			}
			book.Available = false
		}
		loan.Status = *patch.Status
	}
	cp := *loan
	return &cp, nil
}

func (r *memLoanRepo) Delete(ctx context.Context, id int64) error {
	loan, ok := r.store.loans[id]
	if !ok {
		return domain.ErrNotFound
	}
	if loan.Status == domain.LoanActive {
		if book, ok := r.store.books[loan.BookID]; ok {
			book.Available = true
		}
	}
	delete(r.store.loans, id)
	return nil
}

func (r *memLoanRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	for _, l := range r.store.loans {
		if l.Status == domain.LoanActive {
			n++
		}
	}
	return n, nil
}

func (r *memLoanRepo) CountOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	for _, l := range r.store.loans {
		if l.Overdue(asOf) {
			n++
		}
	}
	return n, nil
}

// TestServerHelper runs the full handler stack over in-memory stores.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Hub    *events.Hub
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.NewLogger("debug")
	store := newMemStore()
	hub := events.NewHub()

	bookService := service.NewBookService(&memBookRepo{store}, log)
	userService := service.NewUserService(&memUserRepo{store}, log)
	tokenManager := auth.NewTokenManager("test-secret", "libris", time.Hour)
	authService := service.NewAuthService(userService, &memUserRepo{store}, tokenManager, log)
	loanService := service.NewLoanService(&memLoanRepo{store}, &memUserRepo{store}, nil, hub, 14, log)

	bookHandler := handler.NewBookHandler(bookService, log, 100, 20, 100)
	userHandler := handler.NewUserHandler(userService, authService, nil, log, 20, 100)
	loanHandler := handler.NewLoanHandler(loanService, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/register", userHandler.Register)
	mux.HandleFunc("POST /api/users/login", userHandler.Login)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("GET /api/books", bookHandler.List)
	mux.HandleFunc("GET /api/books/{id}", bookHandler.Get)
	mux.HandleFunc("POST /api/books", bookHandler.Create)
	mux.HandleFunc("GET /api/loans", loanHandler.List)
	mux.HandleFunc("GET /api/loans/{id}", loanHandler.Get)
	mux.HandleFunc("POST /api/loans/borrow", loanHandler.Borrow)
	mux.HandleFunc("POST /api/loans/return/{id}", loanHandler.Return)
	mux.HandleFunc("PUT /api/loans/{id}", loanHandler.Update)
	mux.HandleFunc("DELETE /api/loans/{id}", loanHandler.Delete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &TestServerHelper{
		Server: httptest.NewServer(mux),
		Logger: log,
		Hub:    hub,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
	h.Hub.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

func AssertStatusCode(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func AssertContentType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, want) {
		t.Errorf("expected content type %q, got %q", want, ct)
	}
}
