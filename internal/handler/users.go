package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/security/auth"
	"github.com/yourorg/libris/internal/security/middleware"
	"github.com/yourorg/libris/internal/security/ratelimit"
	"github.com/yourorg/libris/internal/service"
)

// Login attempts allowed per email+IP inside the strict window.
const (
	loginMaxAttempts = 5
	loginWindow      = time.Minute
)

// UserRequest carries user fields plus the plaintext password.
type UserRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// UserHandler serves /api/users including register and login.
type UserHandler struct {
	users    *service.UserService
	auth     *service.AuthService
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	pageSize int
	pageMax  int
}

// NewUserHandler creates a new user handler.
func NewUserHandler(
	users *service.UserService,
	auth *service.AuthService,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
	defaultPageSize, maxPageSize int,
) *UserHandler {
	return &UserHandler{
		users:    users,
		auth:     auth,
		limiter:  limiter,
		logger:   logger,
		pageSize: defaultPageSize,
		pageMax:  maxPageSize,
	}
}

func (req *UserRequest) toUser() *domain.User {
	return &domain.User{
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
		Role:    domain.Role(strings.ToUpper(req.Role)),
	}
}

// Register handles POST /api/users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	user, err := h.auth.Register(r.Context(), req.toUser(), req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// Login handles POST /api/users/login. Attempts are throttled per
// email+client address to slow down credential stuffing.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	if h.limiter != nil {
		key := "login:" + strings.ToLower(req.Email) + ":" + clientAddr(r)
		if !h.limiter.AllowStrict(key, loginMaxAttempts, loginWindow) {
			h.logger.Warn("login throttled", slog.String("email", req.Email))
			writeError(w, h.logger, domain.ErrRateLimited)
			return
		}
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), parsePage(r, h.pageSize, h.pageMax))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create handles POST /api/users. Unlike Register it honors the role field,
// so staff can create librarian accounts.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	user, err := h.users.Create(r.Context(), req.toUser(), req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.InvalidInputf("malformed request body"))
		return
	}

	// Only admins may change roles.
	if req.Role != "" {
		claims := middleware.GetClaimsFromContext(r.Context())
		if claims == nil || !auth.CanManageUsers(claims.Role) {
			writeError(w, h.logger, fmt.Errorf("%w: role changes require admin", domain.ErrForbidden))
			return
		}
	}

	user, err := h.users.Update(r.Context(), id, req.toUser(), req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientAddr(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
