package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// TestHealthEndpoint verifies the liveness probe
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("expected 'ok', got %q", string(body))
	}
}

// TestMetricsEndpoint verifies the Prometheus endpoint answers
func TestMetricsEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/metrics")
	if err != nil {
		t.Fatalf("metrics endpoint failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("expected metrics output, got empty body")
	}
}

// TestRegisterAndLoginFlow runs the auth round trip over HTTP
func TestRegisterAndLoginFlow(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL()+"/api/users/register", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "secret123",
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	AssertContentType(t, resp, "application/json")

	var registered struct {
		Token string `json:"token"`
		User  struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	decode(t, resp, &registered)
	if registered.Token == "" {
		t.Error("register must return a token")
	}
	if registered.User.Role != "MEMBER" {
		t.Errorf("expected MEMBER role, got %q", registered.User.Role)
	}

	// Duplicate registration conflicts
	resp = postJSON(t, server.URL()+"/api/users/register", map[string]string{
		"name":     "Eve",
		"email":    "ada@example.com",
		"password": "secret456",
	})
	AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Wrong password is a 401
	resp = postJSON(t, server.URL()+"/api/users/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = postJSON(t, server.URL()+"/api/users/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret123",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}

// TestLoanWorkflow drives borrow/return over HTTP and checks that book
// availability tracks loan status throughout.
func TestLoanWorkflow(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	// Register a reader
	resp := postJSON(t, server.URL()+"/api/users/register", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "secret123",
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var registered struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decode(t, resp, &registered)

	// Add a book
	resp = postJSON(t, server.URL()+"/api/books", map[string]any{
		"title":           "Dune",
		"isbn":            "978-0-441-01359-3",
		"publicationYear": 1965,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var book struct {
		ID        int64 `json:"id"`
		Available bool  `json:"available"`
	}
	decode(t, resp, &book)
	if !book.Available {
		t.Fatal("new book must start available")
	}

	// Borrow it
	resp = postJSON(t, server.URL()+"/api/loans/borrow", map[string]int64{
		"userId": registered.User.ID,
		"bookId": book.ID,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var loan struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, resp, &loan)
	if loan.Status != "ACTIVE" {
		t.Errorf("expected ACTIVE loan, got %q", loan.Status)
	}

	// Book now unavailable
	resp, err := http.Get(fmt.Sprintf("%s/api/books/%d", server.URL(), book.ID))
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	decode(t, resp, &book)
	if book.Available {
		t.Error("borrowed book must be unavailable")
	}

	// A second borrow conflicts
	resp = postJSON(t, server.URL()+"/api/loans/borrow", map[string]int64{
		"userId": registered.User.ID,
		"bookId": book.ID,
	})
	AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Return it
	resp, err = http.Post(fmt.Sprintf("%s/api/loans/return/%d", server.URL(), loan.ID), "application/json", nil)
	if err != nil {
		t.Fatalf("return loan: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusOK)
	var returned struct {
		Status     string  `json:"status"`
		ReturnDate *string `json:"returnDate"`
	}
	decode(t, resp, &returned)
	if returned.Status != "RETURNED" || returned.ReturnDate == nil {
		t.Errorf("unexpected returned loan %+v", returned)
	}

	// Double return conflicts
	resp, err = http.Post(fmt.Sprintf("%s/api/loans/return/%d", server.URL(), loan.ID), "application/json", nil)
	if err != nil {
		t.Fatalf("second return: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Book available again
	resp, err = http.Get(fmt.Sprintf("%s/api/books/%d", server.URL(), book.ID))
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	decode(t, resp, &book)
	if !book.Available {
		t.Error("returned book must be available")
	}
}

// TestLoanUpdateRejectsUnknownStatus verifies the closed status set
func TestLoanUpdateRejectsUnknownStatus(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL()+"/api/users/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret123",
	})
	var registered struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decode(t, resp, &registered)

	resp = postJSON(t, server.URL()+"/api/books", map[string]any{
		"title": "Dune", "isbn": "978-0-441-01359-3", "publicationYear": 1965,
	})
	var book struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &book)

	resp = postJSON(t, server.URL()+"/api/loans/borrow", map[string]int64{
		"userId": registered.User.ID, "bookId": book.ID,
	})
	var loan struct {
		ID int64 `json:"id"`
	}
	decode(t, resp, &loan)

	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/loans/%d", server.URL(), loan.ID),
		bytes.NewReader([]byte(`{"status":"LOST"}`)))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update loan: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// Case-insensitive values are fine
	req, _ = http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/loans/%d", server.URL(), loan.ID),
		bytes.NewReader([]byte(`{"status":"returned"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update loan: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}
