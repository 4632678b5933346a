// Package protocol defines the JSON frames exchanged over the relay websocket.
// Every frame is an object with a "type" discriminator.
package protocol

import "github.com/thereayou/hushroom/pkg/domain"

// Type is the frame discriminator.
type Type string

const (
	// Client to server.
	TypeCreateRoom  Type = "create_room"
	TypeJoinRoom    Type = "join_room"
	TypeLeaveRoom   Type = "leave_room"
	TypeSendMessage Type = "send_message"

	// Server to client.
	TypeRoomCreated Type = "room_created"
	TypeRoomJoined  Type = "room_joined"
	TypeUserJoined  Type = "user_joined"
	TypeUserLeft    Type = "user_left"
	TypeRoomClosed  Type = "room_closed"
	TypeNewMessage  Type = "new_message"
	TypeError       Type = "error"
)

// ReasonParticipantLeft is the only room_closed reason the relay emits.
const ReasonParticipantLeft = "participant_left"

// Frame is implemented by every frame type.
type Frame interface {
	FrameType() Type
}

// Command is a client to server frame.
type Command interface {
	Frame
	command()
}

// Event is a server to client frame.
type Event interface {
	Frame
	event()
}

type envelope struct {
	Type Type `json:"type"`
}

type CreateRoom struct {
	Type Type        `json:"type"`
	User domain.User `json:"user"`
}

type JoinRoom struct {
	Type   Type        `json:"type"`
	RoomID string      `json:"roomId" validate:"required,max=64,roomid"`
	User   domain.User `json:"user"`
}

type LeaveRoom struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId" validate:"required,max=64"`
	// UserID defaults to the user bound to the connection.
	UserID string `json:"userId,omitempty" validate:"max=128"`
}

// MessageData is the client supplied part of a chat message. The relay adds
// the timestamp.
type MessageData struct {
	ID       string `json:"id,omitempty" validate:"max=128"`
	Text     string `json:"text" validate:"required"`
	Username string `json:"username,omitempty" validate:"max=64"`
	UserID   string `json:"userId,omitempty" validate:"max=128"`
}

type SendMessage struct {
	Type        Type        `json:"type"`
	RoomID      string      `json:"roomId" validate:"required,max=64"`
	MessageData MessageData `json:"messageData"`
}

func (CreateRoom) FrameType() Type  { return TypeCreateRoom }
func (JoinRoom) FrameType() Type    { return TypeJoinRoom }
func (LeaveRoom) FrameType() Type   { return TypeLeaveRoom }
func (SendMessage) FrameType() Type { return TypeSendMessage }

func (CreateRoom) command()  {}
func (JoinRoom) command()    {}
func (LeaveRoom) command()   {}
func (SendMessage) command() {}

type RoomCreated struct {
	Type   Type                `json:"type"`
	RoomID string              `json:"roomId"`
	Room   domain.RoomSnapshot `json:"room"`
}

type RoomJoined struct {
	Type   Type                `json:"type"`
	RoomID string              `json:"roomId"`
	Room   domain.RoomSnapshot `json:"room"`
}

type UserJoined struct {
	Type         Type          `json:"type"`
	User         domain.User   `json:"user"`
	Participants []domain.User `json:"participants"`
}

type UserLeft struct {
	Type         Type          `json:"type"`
	User         domain.User   `json:"user"`
	Participants []domain.User `json:"participants"`
}

type RoomClosed struct {
	Type   Type   `json:"type"`
	Reason string `json:"reason"`
}

type NewMessage struct {
	Type    Type           `json:"type"`
	Message domain.Message `json:"message"`
}

type Error struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func (RoomCreated) FrameType() Type { return TypeRoomCreated }
func (RoomJoined) FrameType() Type  { return TypeRoomJoined }
func (UserJoined) FrameType() Type  { return TypeUserJoined }
func (UserLeft) FrameType() Type    { return TypeUserLeft }
func (RoomClosed) FrameType() Type  { return TypeRoomClosed }
func (NewMessage) FrameType() Type  { return TypeNewMessage }
func (Error) FrameType() Type       { return TypeError }

func (RoomCreated) event() {}
func (RoomJoined) event()  {}
func (UserJoined) event()  {}
func (UserLeft) event()    {}
func (RoomClosed) event()  {}
func (NewMessage) event()  {}
func (Error) event()       {}

func NewCreateRoom(user domain.User) CreateRoom {
	return CreateRoom{Type: TypeCreateRoom, User: user}
}

func NewJoinRoom(roomID string, user domain.User) JoinRoom {
	return JoinRoom{Type: TypeJoinRoom, RoomID: roomID, User: user}
}

func NewLeaveRoom(roomID, userID string) LeaveRoom {
	return LeaveRoom{Type: TypeLeaveRoom, RoomID: roomID, UserID: userID}
}

func NewSendMessage(roomID string, data MessageData) SendMessage {
	return SendMessage{Type: TypeSendMessage, RoomID: roomID, MessageData: data}
}

func NewRoomCreated(room domain.RoomSnapshot) RoomCreated {
	return RoomCreated{Type: TypeRoomCreated, RoomID: room.ID, Room: room}
}

func NewRoomJoined(room domain.RoomSnapshot) RoomJoined {
	return RoomJoined{Type: TypeRoomJoined, RoomID: room.ID, Room: room}
}

func NewUserJoined(user domain.User, participants []domain.User) UserJoined {
	return UserJoined{Type: TypeUserJoined, User: user, Participants: participants}
}

func NewUserLeft(user domain.User, participants []domain.User) UserLeft {
	return UserLeft{Type: TypeUserLeft, User: user, Participants: participants}
}

func NewRoomClosed(reason string) RoomClosed {
	return RoomClosed{Type: TypeRoomClosed, Reason: reason}
}

func NewNewMessage(m domain.Message) NewMessage {
	return NewMessage{Type: TypeNewMessage, Message: m}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
