package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	ws "github.com/thereayou/hushroom/internal/websocket"
)

// WebSocketHandler upgrades GET /ws and hands the connection to the hub.
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	clientOpts     ws.ClientOptions
	log            *slog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, origins *OriginPolicy, opts ws.ClientOptions, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		clientOpts: opts,
		log:        log,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug("ws.upgrade_failed", "addr", c.ClientIP(), "err", err)
		return
	}

	client := ws.NewClient(h.hub, conn, c.ClientIP(), h.clientOpts)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
