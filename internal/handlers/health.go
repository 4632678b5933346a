package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/hushroom/internal/handlers/dto"
	"github.com/thereayou/hushroom/internal/websocket"
)

type HealthHandler struct {
	hub *websocket.Hub
}

func NewHealthHandler(hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Health(c *gin.Context) {
	rooms, connections := h.hub.Stats()
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:      "healthy",
		Rooms:       rooms,
		Connections: connections,
	})
}
