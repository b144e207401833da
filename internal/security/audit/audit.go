package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

type contextKey string

// RequestIDKey is the context key under which the request id travels.
const RequestIDKey contextKey = "request_id"

// Logger emits structured audit entries for security-relevant actions.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogBorrow(ctx context.Context, userID, loanID int64, status, details string) {
	al.LogAction(ctx, userID, "borrow", "loan", strconv.FormatInt(loanID, 10), status, details)
}

func (al *Logger) LogReturn(ctx context.Context, userID, loanID int64, status, details string) {
	al.LogAction(ctx, userID, "return", "loan", strconv.FormatInt(loanID, 10), status, details)
}

func (al *Logger) LogDeletion(ctx context.Context, userID int64, resource, resourceID, status, details string) {
	al.LogAction(ctx, userID, "delete", resource, resourceID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
