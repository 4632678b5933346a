package handlers

import (
	"errors"
	"log/slog"

	"github.com/thereayou/hushroom/internal/websocket"
	"github.com/thereayou/hushroom/pkg/protocol"
)

// MessageHandler routes decoded client commands to the hub.
type MessageHandler struct {
	hub *websocket.Hub
	log *slog.Logger
}

func NewMessageHandler(hub *websocket.Hub, log *slog.Logger) *MessageHandler {
	return &MessageHandler{
		hub: hub,
		log: log,
	}
}

// HandleMessage decodes one frame and applies it. Frames of an unknown type
// are ignored; any other returned error is reported to the peer.
func (h *MessageHandler) HandleMessage(p websocket.Peer, raw []byte) error {
	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			h.log.Debug("handler.unknown_type", "conn_id", p.ID(), "err", err)
			return nil
		}
		return err
	}

	switch c := cmd.(type) {
	case protocol.CreateRoom:
		_, err := h.hub.CreateRoom(p, c.User)
		return err

	case protocol.JoinRoom:
		h.hub.JoinRoom(p, c.RoomID, c.User)
		return nil

	case protocol.LeaveRoom:
		h.hub.LeaveRoom(p, c.RoomID, c.UserID)
		return nil

	case protocol.SendMessage:
		_, err := h.hub.SendMessage(p, c.RoomID, c.MessageData)
		return err

	default:
		h.log.Debug("handler.unhandled_command", "type", cmd.FrameType())
		return nil
	}
}
