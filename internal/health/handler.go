// Package health exposes the server's liveness/diagnostic HTTP endpoint.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stats is the live snapshot the engine reports for /health.
type Stats struct {
	ActiveSpaces      int
	TotalParticipants int
	ConnectedClients  int
}

// StatsProvider is implemented by the engine so the handler never needs
// to reach into its mutex-guarded state directly.
type StatsProvider interface {
	Stats() Stats
}

// Handler serves the /health endpoint.
type Handler struct {
	provider StatsProvider
}

// NewHandler creates a new health check handler.
func NewHandler(provider StatsProvider) *Handler {
	return &Handler{provider: provider}
}

// Response is the exact wire shape for GET /health.
type Response struct {
	Status            string `json:"status"`
	ActiveSpaces      int    `json:"active_spaces"`
	TotalParticipants int    `json:"total_participants"`
	ConnectedClients  int    `json:"connected_clients"`
}

// Check handles GET /health.
func (h *Handler) Check(c *gin.Context) {
	stats := h.provider.Stats()
	c.JSON(http.StatusOK, Response{
		Status:            "healthy",
		ActiveSpaces:      stats.ActiveSpaces,
		TotalParticipants: stats.TotalParticipants,
		ConnectedClients:  stats.ConnectedClients,
	})
}
