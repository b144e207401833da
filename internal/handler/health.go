package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/libris/internal/infrastructure/redis"
	"github.com/yourorg/libris/pkg/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool        *database.ConnectionPool
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *database.ConnectionPool, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{
		pool:        pool,
		redisClient: redisClient,
		logger:      logger,
	}
}

// HealthResponse represents the liveness response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz. Returns 200 while the process is up.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz. Returns 200 only when Postgres and Redis both
// answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	dbOK := false
	if h.pool != nil {
		if err := h.pool.Health(ctx); err == nil {
			checks["postgres"] = "ok"
			dbOK = true
		} else {
			checks["postgres"] = "error: " + err.Error()
		}
	} else {
		checks["postgres"] = "not configured"
	}

	redisOK := false
	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx); err == nil {
			checks["redis"] = "ok"
			redisOK = true
		} else {
			checks["redis"] = "error: " + err.Error()
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !dbOK || !redisOK {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadinessResponse{
		Status: status,
		Checks: checks,
	})

	h.logger.Info("readiness check",
		slog.String("status", status),
		slog.String("postgres", checks["postgres"]),
		slog.String("redis", checks["redis"]),
	)
}
