package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/service"
)

// AuthorHandler serves /api/authors.
type AuthorHandler struct {
	service *service.AuthorService
	logger  *slog.Logger
	bulkMax int
}

// NewAuthorHandler creates a new author handler.
func NewAuthorHandler(svc *service.AuthorService, logger *slog.Logger, bulkMax int) *AuthorHandler {
	return &AuthorHandler{
		service: svc,
		logger:  logger,
		bulkMax: bulkMax,
	}
}

// List handles GET /api/authors with optional name and nationality filters.
func (h *AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	authors, err := h.service.List(r.Context(), q.Get("name"), q.Get("nationality"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if authors == nil {
		authors = []*domain.Author{}
	}
	writeJSON(w, http.StatusOK, authors)
}

// Get handles GET /api/authors/{id}.
func (h *AuthorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	author, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// Create handles POST /api/authors.
func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var author domain.Author
	if err := json.NewDecoder(r.Body).Decode(&author); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), &author)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateBulk handles POST /api/authors/bulk.
func (h *AuthorHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var authors []*domain.Author
	if err := json.NewDecoder(r.Body).Decode(&authors); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	created, err := h.service.CreateMany(r.Context(), authors, h.bulkMax)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/authors/{id}.
func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch domain.Author
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

// Delete handles DELETE /api/authors/{id}.
func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
