package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// pinger is satisfied by order stores that can report their health
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	logger *slog.Logger
	store  pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *slog.Logger, store pinger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		store:  store,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Error     string    `json:"error,omitempty"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	status := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Error("order store health check failed", "error", err)
			response.Status = "unhealthy"
			response.Error = "order store unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, status, response, h.logger)
}
