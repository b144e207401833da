package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/service"
)

// BorrowRequest starts a loan.
type BorrowRequest struct {
	UserID int64 `json:"userId"`
	BookID int64 `json:"bookId"`
}

// LoanUpdateRequest carries a partial loan update. Absent fields stay
// untouched.
type LoanUpdateRequest struct {
	LoanDate   *time.Time `json:"loanDate"`
	ReturnDate *time.Time `json:"returnDate"`
	Status     *string    `json:"status"`
}

// LoanHandler serves /api/loans.
type LoanHandler struct {
	service *service.LoanService
	logger  *slog.Logger
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(svc *service.LoanService, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /api/loans.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if loans == nil {
		loans = []*domain.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// Borrow handles POST /api/loans/borrow.
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	loan, err := h.service.Borrow(r.Context(), req.UserID, req.BookID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// Return handles POST /api/loans/return/{id}.
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.service.Return(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// Update handles PUT /api/loans/{id}. The status string is parsed against
// the closed status set before anything touches the database.
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req LoanUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	patch := domain.LoanPatch{
		LoanDate:   req.LoanDate,
		ReturnDate: req.ReturnDate,
	}
	if req.Status != nil {
		status, err := domain.ParseLoanStatus(*req.Status)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		patch.Status = &status
	}

	loan, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// Delete handles DELETE /api/loans/{id}.
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
