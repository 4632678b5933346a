package domain

import (
	"time"

	"github.com/samber/lo"
)

// Room is an ephemeral conversation. Room is not safe for concurrent use; the
// relay serializes every access through its hub.
type Room struct {
	ID           string
	Participants []User
	Messages     []Message
	CreatedAt    time.Time
	LastActivity time.Time
}

// RoomSnapshot is the wire representation of a room.
type RoomSnapshot struct {
	ID           string    `json:"id"`
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    int64     `json:"createdAt,omitempty"`
	LastActivity int64     `json:"lastActivity,omitempty"`
}

// NewRoom creates an active room whose only participant is owner.
func NewRoom(id string, owner User, now time.Time) *Room {
	return &Room{
		ID:           id,
		Participants: []User{owner},
		Messages:     []Message{},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// HasParticipant reports whether a user with the given id is in the room.
func (r *Room) HasParticipant(userID string) bool {
	return lo.ContainsBy(r.Participants, func(u User) bool { return u.ID == userID })
}

// AddParticipant appends u unless a participant with the same id is already
// present. It returns true when the participant list changed.
func (r *Room) AddParticipant(u User) bool {
	if r.HasParticipant(u.ID) {
		return false
	}
	r.Participants = append(r.Participants, u)
	return true
}

// RemoveParticipant drops the participant with the given id.
func (r *Room) RemoveParticipant(userID string) bool {
	before := len(r.Participants)
	r.Participants = lo.Reject(r.Participants, func(u User, _ int) bool { return u.ID == userID })
	return len(r.Participants) != before
}

// AppendMessage stamps m with now and appends it. Timestamps never go backwards
// within a room, so a clock step back reuses the last timestamp.
func (r *Room) AppendMessage(m Message, now time.Time) Message {
	m.Timestamp = now.UnixMilli()
	if n := len(r.Messages); n > 0 && r.Messages[n-1].Timestamp > m.Timestamp {
		m.Timestamp = r.Messages[n-1].Timestamp
	}
	r.Messages = append(r.Messages, m)
	r.Touch(now)
	return m
}

// Touch records activity at now.
func (r *Room) Touch(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}

// Unexpired returns the messages still inside the retention window at now.
func (r *Room) Unexpired(now time.Time, retention time.Duration) []Message {
	return lo.Filter(r.Messages, func(m Message, _ int) bool { return !m.Expired(now, retention) })
}

// Prune removes expired messages and returns how many were dropped.
func (r *Room) Prune(now time.Time, retention time.Duration) int {
	kept := r.Unexpired(now, retention)
	dropped := len(r.Messages) - len(kept)
	r.Messages = kept
	return dropped
}

// Snapshot returns a copy of the room suitable for sending to a client, with
// expired messages filtered out.
func (r *Room) Snapshot(now time.Time, retention time.Duration) RoomSnapshot {
	return RoomSnapshot{
		ID:           r.ID,
		Participants: append([]User{}, r.Participants...),
		Messages:     r.Unexpired(now, retention),
		CreatedAt:    r.CreatedAt.UnixMilli(),
		LastActivity: r.LastActivity.UnixMilli(),
	}
}
