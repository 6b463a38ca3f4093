package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chillman12/dexter3.0/internal/domain"
)

// FeedStatus reports the live connection state and counters.
type FeedStatus interface {
	State() domain.ConnectionState
	Stats() domain.ConnectionStats
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feed   FeedStatus
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given feed's state.
func NewHealthHandler(feed FeedStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{feed: feed, logger: logger}
}

// HealthCheck responds with the service status and the feed connection state.
// GET /api/v1/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"feed":      h.feed.State().String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
