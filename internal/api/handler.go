// Package api exposes a small read-only HTTP mirror of the live
// session next to the WebSocket gateway: liveness, the poll archive,
// and the connected-student roster.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/classpoll/backend/internal/realtime"
	"github.com/classpoll/backend/internal/session"
	"github.com/classpoll/backend/pkg/response"
)

// Handler serves the read-only session endpoints.
type Handler struct {
	coord *session.Coordinator
	hub   *realtime.Hub
}

// NewHandler creates an API handler over the session coordinator.
func NewHandler(coord *session.Coordinator, hub *realtime.Hub) *Handler {
	return &Handler{coord: coord, hub: hub}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok", "connections": h.hub.Count()})
}

// History handles GET /api/history: archived polls, oldest first.
func (h *Handler) History(c *gin.Context) {
	response.OK(c, h.coord.History())
}

// Participants handles GET /api/participants: connected students in
// join order plus their count.
func (h *Handler) Participants(c *gin.Context) {
	students, count := h.coord.Students()
	response.OK(c, gin.H{"students": students, "count": count})
}
