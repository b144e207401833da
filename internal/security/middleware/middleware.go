package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/libris/internal/security/audit"
	"github.com/yourorg/libris/internal/security/auth"
	"github.com/yourorg/libris/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublic reports whether a request may pass without a token. Reads,
// registration, login, health probes, metrics and the activity feed stay
// open; every mutating endpoint requires auth.
func isPublic(r *http.Request) bool {
	p := r.URL.Path
	if p == "/healthz" || p == "/readyz" || p == "/metrics" {
		return true
	}
	if p == "/api/users/register" || p == "/api/users/login" {
		return true
	}
	if strings.HasPrefix(p, "/ws/") {
		return true
	}
	if r.Method == http.MethodGet || r.Method == http.MethodOptions {
		return true
	}
	return false
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				log.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("client", key))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting: the authenticated
// email when present, the remote address otherwise.
func clientKey(r *http.Request) string {
	if c := GetClaimsFromContext(r.Context()); c != nil {
		return c.Email
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID int64
			if c := GetClaimsFromContext(r.Context()); c != nil {
				userID = c.UserID
			}

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/api/loans/borrow":
				auditLog.LogAction(r.Context(), userID, "borrow", "loan", "", "initiated", "")
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/loans/return/"):
				auditLog.LogAction(r.Context(), userID, "return", "loan", r.PathValue("id"), "initiated", "")
			case r.Method == http.MethodDelete:
				auditLog.LogAction(r.Context(), userID, "delete", resourceFromPath(r.URL.Path), r.PathValue("id"), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resourceFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/api/"), "/")
	if len(parts) > 0 && parts[0] != "" {
		return strings.TrimSuffix(parts[0], "s")
	}
	return "api"
}

// RequireStaff rejects delete and other destructive calls from plain
// members with 403.
func RequireStaff(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil || !auth.CanDelete(claims.Role) {
				var userID int64
				if claims != nil {
					userID = claims.UserID
				}
				auditLog.LogDenied(r.Context(), userID, "staff role required for "+r.URL.Path)
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TimeoutMiddleware bounds every request with a deadline. Handlers turn a
// context.DeadlineExceeded into 503. Websocket upgrades are exempt since
// the connection outlives any sane request deadline.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/ws/") {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
