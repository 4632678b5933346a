package main

import (
	"github.com/gin-gonic/gin"

	"github.com/thereayou/hushroom/internal/handlers"
)

func APIEndpoints(r *gin.Engine, wsH *handlers.WebSocketHandler, healthH *handlers.HealthHandler, roomH *handlers.RoomHandler, staticH *handlers.StaticHandler) {
	r.GET("/ws", wsH.HandleWebSocket)
	r.GET("/health", healthH.Health)

	api := r.Group("/api")
	{
		api.GET("/rooms/:id", roomH.GetRoom)
	}

	// Everything else is the web client.
	r.NoRoute(staticH.Serve)
}
