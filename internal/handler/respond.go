package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/libris/internal/domain"
)

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError translates a service error into the standard error body.
// Sentinel wrapping decides the status code; the wrapped message is passed
// through except for internal errors, which stay opaque.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrBookUnavailable),
		errors.Is(err, domain.ErrLoanAlreadyReturned),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
		message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		message = "request timed out"
	default:
		if log != nil {
			log.Error("request failed", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, status, ErrorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Status:      http.StatusBadRequest,
		Message:     "validation failed",
		FieldErrors: fields,
		Timestamp:   time.Now(),
	})
}

// parseID reads the {id} path value as a positive int64.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInputf("invalid id %q", raw)
	}
	return id, nil
}

// parsePage reads page/size/sortBy/sortDirection query parameters with
// defaults and a size cap.
func parsePage(r *http.Request, defaultSize, maxSize int) domain.PageRequest {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		page = 0
	}

	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}

	direction := strings.ToLower(q.Get("sortDirection"))
	if direction != "desc" {
		direction = "asc"
	}

	return domain.PageRequest{
		Page:          page,
		Size:          size,
		SortBy:        q.Get("sortBy"),
		SortDirection: direction,
	}
}
