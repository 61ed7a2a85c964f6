package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

type HealthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	Database     string `json:"database"`
	Redis        string `json:"redis"`
	Sessions     int    `json:"sessions"`
	LivePreviews int    `json:"livePreviews"`
}

// Pinger is a backing service that may be disabled (nil).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports a live resource count.
type Counter func() int

type HealthHandler struct {
	db       Pinger
	redis    Pinger
	sessions Counter
	previews Counter
}

func NewHealthHandler(db, redis Pinger, sessions, previews Counter) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, sessions: sessions, previews: previews}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  ping(ctx, logger, "database", h.db),
		Redis:     ping(ctx, logger, "redis", h.redis),
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions()
	}
	if h.previews != nil {
		resp.LivePreviews = h.previews()
	}
	if resp.Database == StatusDisconnected || resp.Redis == StatusDisconnected {
		resp.Status = "degraded"
	}

	response.Success(w, http.StatusOK, resp)
}

func ping(ctx context.Context, logger *slog.Logger, name string, p Pinger) string {
	if p == nil {
		return StatusDisabled
	}
	if err := p.Ping(ctx); err != nil {
		logger.Warn("Backing service ping failed", "service", name, "error", err)
		return StatusDisconnected
	}
	return StatusConnected
}
