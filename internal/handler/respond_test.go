package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/libris/internal/domain"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.InvalidInputf("bad id"), http.StatusBadRequest},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("book 7: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"email taken", domain.ErrEmailTaken, http.StatusConflict},
		{"book unavailable", domain.ErrBookUnavailable, http.StatusConflict},
		{"already returned", domain.ErrLoanAlreadyReturned, http.StatusConflict},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"deadline exceeded", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, nil, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tc.status {
				t.Errorf("body status %d does not match header %d", body.Status, tc.status)
			}
			if body.Message == "" {
				t.Error("message must not be empty")
			}
			if body.Timestamp.IsZero() {
				t.Error("timestamp must be set")
			}
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, errors.New("pq: connection refused at 10.0.0.3"))

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "internal server error" {
		t.Errorf("internal detail leaked: %q", body.Message)
	}
}

func TestParseID(t *testing.T) {
	mux := http.NewServeMux()
	var gotID int64
	var gotErr error
	mux.HandleFunc("GET /api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotID, gotErr = parseID(r)
	})

	for _, tc := range []struct {
		path string
		ok   bool
		id   int64
	}{
		{"/api/books/42", true, 42},
		{"/api/books/0", false, 0},
		{"/api/books/-5", false, 0},
		{"/api/books/abc", false, 0},
	} {
		gotID, gotErr = 0, nil
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))
		if tc.ok {
			if gotErr != nil || gotID != tc.id {
				t.Errorf("%s: expected id %d, got %d err %v", tc.path, tc.id, gotID, gotErr)
			}
		} else if !errors.Is(gotErr, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.path, gotErr)
		}
	}
}

func TestParsePage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/books?page=2&size=500&sortBy=title&sortDirection=DESC", nil)
	page := parsePage(r, 20, 100)

	if page.Page != 2 {
		t.Errorf("expected page 2, got %d", page.Page)
	}
	if page.Size != 100 {
		t.Errorf("expected size capped at 100, got %d", page.Size)
	}
	if page.SortBy != "title" {
		t.Errorf("expected sortBy title, got %q", page.SortBy)
	}
	if page.SortDirection != "desc" {
		t.Errorf("expected desc, got %q", page.SortDirection)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/books?page=-1&size=0", nil)
	page = parsePage(r, 20, 100)
	if page.Page != 0 || page.Size != 20 || page.SortDirection != "asc" {
		t.Errorf("expected defaults, got %+v", page)
	}
}
