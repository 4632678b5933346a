package websocket

import (
	"errors"

	"github.com/thereayou/hushroom/pkg/protocol"
)

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomIDExhausted = errors.New("could not generate a unique room id")
)

// ClientErrorMessage maps an error from frame handling to the text sent back
// in an error frame.
func ClientErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case protocol.IsProtocolError(err):
		return "Invalid message format"
	default:
		return "Internal server error"
	}
}
