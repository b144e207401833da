package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/libris/internal/domain"
)

// BookService is what the book handler needs from the service layer. Both
// the plain and the Redis-cached book services satisfy it.
type BookService interface {
	List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error)
	Get(ctx context.Context, id int64) (*domain.Book, error)
	Create(ctx context.Context, book *domain.Book) (*domain.Book, error)
	CreateMany(ctx context.Context, books []*domain.Book, limit int) ([]*domain.Book, error)
	Update(ctx context.Context, id int64, patch *domain.Book) (*domain.Book, error)
	Delete(ctx context.Context, id int64) error
}

// BookHandler serves /api/books.
type BookHandler struct {
	service  BookService
	logger   *slog.Logger
	bulkMax  int
	pageSize int
	pageMax  int
}

// NewBookHandler creates a new book handler.
func NewBookHandler(svc BookService, logger *slog.Logger, bulkMax, defaultPageSize, maxPageSize int) *BookHandler {
	return &BookHandler{
		service:  svc,
		logger:   logger,
		bulkMax:  bulkMax,
		pageSize: defaultPageSize,
		pageMax:  maxPageSize,
	}
}

// List handles GET /api/books with page/size/sortBy/sortDirection.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), parsePage(r, h.pageSize, h.pageMax))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/books/{id}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Create handles POST /api/books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var book domain.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), &book)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateBulk handles POST /api/books/bulk.
func (h *BookHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var books []*domain.Book
	if err := json.NewDecoder(r.Body).Decode(&books); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	created, err := h.service.CreateMany(r.Context(), books, h.bulkMax)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/books/{id}.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch domain.Book
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	updated, err := h.service.Update(r.Context(), id, &patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/books/{id}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
