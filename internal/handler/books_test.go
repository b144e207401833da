package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yourorg/libris/internal/domain"
)

type stubBookService struct {
	books map[int64]*domain.Book
}

func newStubBookService(books ...*domain.Book) *stubBookService {
	s := &stubBookService{books: map[int64]*domain.Book{}}
	for _, b := range books {
		s.books[b.ID] = b
	}
	return s
}

func (s *stubBookService) List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error) {
	content := make([]*domain.Book, 0, len(s.books))
	for _, b := range s.books {
		content = append(content, b)
	}
	return &domain.BookPage{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: int64(len(content)),
		TotalPages:    1,
	}, nil
}

func (s *stubBookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *stubBookService) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if book.Title == "" {
		return nil, domain.InvalidInputf("title is required")
	}
	book.ID = int64(len(s.books) + 1)
	book.Available = true
	s.books[book.ID] = book
	return book, nil
}

func (s *stubBookService) CreateMany(ctx context.Context, books []*domain.Book, limit int) ([]*domain.Book, error) {
	if len(books) > limit {
		return nil, domain.InvalidInputf("at most %d books per request", limit)
	}
	for _, b := range books {
		if _, err := s.Create(ctx, b); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (s *stubBookService) Update(ctx context.Context, id int64, patch *domain.Book) (*domain.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Title != "" {
		b.Title = patch.Title
	}
	return b, nil
}

func (s *stubBookService) Delete(ctx context.Context, id int64) error {
	if _, ok := s.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func newBookMux(svc BookService) *http.ServeMux {
	h := NewBookHandler(svc, nil, 100, 20, 100)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/books", h.List)
	mux.HandleFunc("GET /api/books/{id}", h.Get)
	mux.HandleFunc("POST /api/books", h.Create)
	mux.HandleFunc("POST /api/books/bulk", h.CreateBulk)
	mux.HandleFunc("PUT /api/books/{id}", h.Update)
	mux.HandleFunc("DELETE /api/books/{id}", h.Delete)
	return mux
}

func TestBookListResponseShape(t *testing.T) {
	mux := newBookMux(newStubBookService(&domain.Book{ID: 1, Title: "Dune", Available: true}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books?page=0&size=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page struct {
		Content       []*domain.Book `json:"content"`
		Page          int            `json:"page"`
		Size          int            `json:"size"`
		TotalElements int64          `json:"totalElements"`
		TotalPages    int            `json:"totalPages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Content) != 1 || page.TotalElements != 1 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestBookGetNotFound(t *testing.T) {
	mux := newBookMux(newStubBookService())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books/7", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBookGetInvalidID(t *testing.T) {
	mux := newBookMux(newStubBookService())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books/zero", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBookCreate(t *testing.T) {
	mux := newBookMux(newStubBookService())

	body := strings.NewReader(`{"title":"Dune","isbn":"9780441013593","publicationYear":1965}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/books", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Book
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || !created.Available {
		t.Errorf("unexpected created book %+v", created)
	}
}

func TestBookCreateMalformedBody(t *testing.T) {
	mux := newBookMux(newStubBookService())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBookDelete(t *testing.T) {
	mux := newBookMux(newStubBookService(&domain.Book{ID: 3, Title: "Dune"}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/books/3", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/books/3", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}
