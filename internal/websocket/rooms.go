package websocket

import (
	"github.com/google/uuid"

	"github.com/thereayou/hushroom/internal/events"
	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/protocol"
)

// CreateRoom opens a new room owned by user and replies room_created to p
// only. A connection already bound elsewhere departs that room first.
func (h *Hub) CreateRoom(p Peer, user domain.User) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.departUnsafe(p, "")

	room, err := h.store.CreateRoom(user, now)
	if err != nil {
		return "", err
	}
	h.store.Attach(p, room.ID)
	h.store.Bind(user.ID, p, room.ID)

	h.sendUnsafe(p, protocol.NewRoomCreated(room.Snapshot(now, h.retention)))
	h.publish(events.KindRoomCreated, room.ID, len(room.Participants), 0)
	h.log.Info("room.created", "room_id", room.ID, "conn_id", p.ID())
	return room.ID, nil
}

// JoinRoom binds p to roomID as user. A missing room is created on the spot
// with user as its only participant. The joiner receives the full snapshot
// and everyone else in the room receives user_joined.
func (h *Hub) JoinRoom(p Peer, roomID string, user domain.User) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.departUnsafe(p, roomID)

	room, ok := h.store.Room(roomID)
	if !ok {
		room = h.store.AddRoom(roomID, user, now)
		h.publish(events.KindRoomCreated, roomID, 1, 0)
	} else {
		room.AddParticipant(user)
		room.Touch(now)
	}
	h.store.Attach(p, roomID)
	h.store.Bind(user.ID, p, roomID)

	h.sendUnsafe(p, protocol.NewRoomJoined(room.Snapshot(now, h.retention)))
	participants := append([]domain.User{}, room.Participants...)
	h.broadcastUnsafe(roomID, protocol.NewUserJoined(user, participants), p)

	h.publish(events.KindRoomJoined, roomID, len(room.Participants), len(room.Messages))
	h.log.Info("room.joined", "room_id", roomID, "conn_id", p.ID(), "participants", len(room.Participants))
}

// LeaveRoom removes userID from roomID and closes the room for everyone.
// An empty userID means the user bound to p. Unknown rooms are ignored.
func (h *Hub) LeaveRoom(p Peer, roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userID == "" {
		if b, ok := h.store.BindingFor(p); ok {
			userID = b.UserID
		}
	}
	h.leaveUnsafe(p, roomID, userID)
}

// SendMessage appends a message to roomID and fans it out to every connection
// in the room, the sender included.
func (h *Hub) SendMessage(p Peer, roomID string, data protocol.MessageData) (domain.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.store.Room(roomID)
	if !ok {
		return domain.Message{}, ErrRoomNotFound
	}

	msg := domain.Message{
		ID:       data.ID,
		Text:     data.Text,
		Username: data.Username,
		UserID:   data.UserID,
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if b, ok := h.store.BindingFor(p); ok && msg.UserID == "" {
		msg.UserID = b.UserID
		if msg.Username == "" {
			msg.Username = h.usernameUnsafe(room, b.UserID)
		}
	}

	msg = room.AppendMessage(msg, h.now())
	delivered := h.broadcastUnsafe(roomID, protocol.NewNewMessage(msg), nil)

	h.publish(events.KindMessageSent, roomID, len(room.Participants), len(room.Messages))
	h.log.Debug("room.message", "room_id", roomID, "conn_id", p.ID(), "delivered", delivered)
	return msg, nil
}

// leaveUnsafe implements the departure transition: any one participant
// leaving closes the room for all remaining connections.
func (h *Hub) leaveUnsafe(p Peer, roomID, userID string) {
	room, ok := h.store.Room(roomID)
	if !ok {
		return
	}

	room.RemoveParticipant(userID)
	h.store.Detach(p, roomID)
	h.store.Unbind(p, roomID)

	notified := h.broadcastUnsafe(roomID, protocol.NewRoomClosed(protocol.ReasonParticipantLeft), nil)
	h.store.DeleteRoom(roomID)

	h.publish(events.KindRoomClosed, roomID, len(room.Participants), len(room.Messages))
	h.log.Info("room.closed", "room_id", roomID, "conn_id", p.ID(), "notified", notified)
}

// departUnsafe makes p leave its current room unless that room is keep.
func (h *Hub) departUnsafe(p Peer, keep string) {
	b, ok := h.store.BindingFor(p)
	if !ok || (keep != "" && b.RoomID == keep) {
		return
	}
	h.leaveUnsafe(p, b.RoomID, b.UserID)
}

func (h *Hub) usernameUnsafe(room *domain.Room, userID string) string {
	for _, u := range room.Participants {
		if u.ID == userID {
			return u.Username
		}
	}
	return ""
}

// Snapshot returns the current view of a room, or false if it does not exist.
func (h *Hub) Snapshot(roomID string) (domain.RoomSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.store.Room(roomID)
	if !ok {
		return domain.RoomSnapshot{}, false
	}
	return room.Snapshot(h.now(), h.retention), true
}
