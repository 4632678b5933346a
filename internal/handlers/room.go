package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/hushroom/internal/handlers/dto"
	"github.com/thereayou/hushroom/internal/websocket"
)

// RoomHandler exposes read-only room lookups over HTTP, so a landing page can
// check a room code before opening a socket.
type RoomHandler struct {
	hub *websocket.Hub
}

func NewRoomHandler(hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{hub: hub}
}

// GetRoom returns the participants and unexpired message count of a room.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("id")

	snap, ok := h.hub.Snapshot(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	c.JSON(http.StatusOK, dto.RoomInfo{
		ID:           snap.ID,
		Participants: len(snap.Participants),
		Messages:     len(snap.Messages),
		CreatedAt:    snap.CreatedAt,
		LastActivity: snap.LastActivity,
	})
}
