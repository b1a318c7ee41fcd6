package handler

import (
	"net/http"
	"time"

	"resto-be/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	logger.Debug("Health check requested")

	deps := make(map[string]string)
	status := "healthy"
	code := http.StatusOK

	if db := h.container.GetDB(); db != nil {
		if err := db.Health(r.Context()); err != nil {
			deps["database"] = "unhealthy"
			status = "degraded"
			code = http.StatusServiceUnavailable
			logger.WithError(err).Error("Database health check failed")
		} else {
			deps["database"] = "healthy"
		}
	}

	if redisClient := h.container.GetRedisClient(); redisClient != nil {
		if err := redisClient.Health(r.Context()); err != nil {
			deps["redis"] = "unhealthy"
			status = "degraded"
			code = http.StatusServiceUnavailable
			logger.WithError(err).Error("Redis health check failed")
		} else {
			deps["redis"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Version:      "1.0.0",
		Service:      "resto-be",
		Dependencies: deps,
	}

	writeJSON(w, code, response, logger)
}
