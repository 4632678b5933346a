// Package events publishes room lifecycle notifications for outside
// observers. Publishing is fire-and-forget: the relay never waits on it.
package events

import "time"

// Kind names a lifecycle notification.
type Kind string

const (
	KindRoomCreated Kind = "room_created"
	KindRoomJoined  Kind = "room_joined"
	KindRoomClosed  Kind = "room_closed"
	KindMessageSent Kind = "message_sent"
	KindRoomSwept   Kind = "room_swept"
)

// Event carries counts only; message text and user names never leave the
// relay.
type Event struct {
	Kind         Kind      `json:"kind"`
	RoomID       string    `json:"roomId"`
	Participants int       `json:"participants"`
	Messages     int       `json:"messages"`
	At           time.Time `json:"at"`
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(evt Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}
