// Package client keeps one persistent connection to the relay alive and
// mirrors the state of the room it is in.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/protocol"
)

var (
	// ErrNotConnected is returned by commands issued while not Connected.
	// Commands are never queued.
	ErrNotConnected = errors.New("client: not connected")
	// ErrReconnectExhausted is delivered with EventReconnectExhausted once
	// every reconnect attempt has failed.
	ErrReconnectExhausted = errors.New("client: reconnect attempts exhausted")
)

const dialTimeout = 10 * time.Second

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventKind string

const (
	EventStateChanged       EventKind = "state_changed"
	EventRoomUpdated        EventKind = "room_updated"
	EventParticipants       EventKind = "participants_changed"
	EventMessage            EventKind = "message"
	EventRoomClosed         EventKind = "room_closed"
	EventServerError        EventKind = "server_error"
	EventReconnectScheduled EventKind = "reconnect_scheduled"
	EventReconnectExhausted EventKind = "reconnect_exhausted"
)

// Event is a snapshot of the controller taken right after something changed.
type Event struct {
	Kind     EventKind
	State    State
	Room     *domain.RoomSnapshot
	Messages []domain.Message
	// Attempt and Delay are set for EventReconnectScheduled.
	Attempt int
	Delay   time.Duration
	Err     error
}

// ServerError carries the message of an error frame.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

type Options struct {
	URL         string
	Dialer      Dialer
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	// OnEvent is called outside the controller lock, from whichever
	// goroutine caused the change.
	OnEvent func(Event)
	Logger  *slog.Logger
}

// Controller is the client side connection state machine:
// Disconnected -> Connecting -> Connected -> Disconnected. Dropped
// connections are retried with capped exponential backoff.
type Controller struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	conn     Conn
	gen      uint64
	attempts int
	timer    *time.Timer
	room     *domain.RoomSnapshot
	messages []domain.Message
}

func New(opts Options) *Controller {
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{opts: opts, log: opts.Logger}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the room the controller is in, if any.
func (c *Controller) Room() (domain.RoomSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return domain.RoomSnapshot{}, false
	}
	return copyRoom(c.room), true
}

func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.messages...)
}

// Connect dials the relay. It is a no-op unless Disconnected, and it resets
// the reconnect budget, so it also restarts a controller that gave up.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.attempts = 0
	c.state = Connecting
	evt := c.eventLocked(EventStateChanged, nil)
	c.mu.Unlock()

	c.emit(evt)
	return c.dial(ctx)
}

// Disconnect closes the connection, cancels any pending reconnect and clears
// local state. No reconnect follows.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.attempts = 0
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
	changed := c.state != Disconnected
	c.resetLocked()
	evt := c.eventLocked(EventStateChanged, nil)
	c.mu.Unlock()

	if changed {
		c.emit(evt)
	}
}

func (c *Controller) CreateRoom(user domain.User) error {
	return c.send(protocol.NewCreateRoom(user))
}

func (c *Controller) JoinRoom(roomID string, user domain.User) error {
	return c.send(protocol.NewJoinRoom(roomID, user))
}

// LeaveRoom tells the relay and drops the local room without waiting for a
// reply.
func (c *Controller) LeaveRoom(roomID, userID string) error {
	if err := c.send(protocol.NewLeaveRoom(roomID, userID)); err != nil {
		return err
	}

	c.mu.Lock()
	hadRoom := c.room != nil
	c.room, c.messages = nil, nil
	evt := c.eventLocked(EventRoomClosed, nil)
	c.mu.Unlock()

	if hadRoom {
		c.emit(evt)
	}
	return nil
}

func (c *Controller) SendMessage(roomID string, msg protocol.MessageData) error {
	return c.send(protocol.NewSendMessage(roomID, msg))
}

func (c *Controller) send(cmd protocol.Command) error {
	raw, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected || c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("client: send %s: %w", cmd.FrameType(), err)
	}
	return nil
}

// dial runs one connection attempt. The controller must be Connecting.
func (c *Controller) dial(ctx context.Context) error {
	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)

	c.mu.Lock()
	if c.state != Connecting {
		// Disconnect won the race.
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrNotConnected
	}

	if err != nil {
		c.log.Debug("client.dial_failed", "url", c.opts.URL, "attempt", c.attempts, "err", err)
		evts := c.dropLocked()
		c.mu.Unlock()
		c.emit(evts...)
		return fmt.Errorf("client: dial: %w", err)
	}

	c.gen++
	c.conn = conn
	c.state = Connected
	c.attempts = 0
	gen := c.gen
	evt := c.eventLocked(EventStateChanged, nil)
	c.mu.Unlock()

	c.log.Info("client.connected", "url", c.opts.URL)
	c.emit(evt)
	go c.readLoop(conn, gen)
	return nil
}

func (c *Controller) readLoop(conn Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(gen, err)
			return
		}
		c.handleFrame(gen, raw)
	}
}

func (c *Controller) connectionLost(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.log.Info("client.connection_lost", "err", err)
	evts := c.dropLocked()
	c.mu.Unlock()

	c.emit(evts...)
}

// dropLocked moves to Disconnected and schedules the next reconnect attempt,
// or reports that the budget is spent.
func (c *Controller) dropLocked() []Event {
	c.resetLocked()
	evts := []Event{c.eventLocked(EventStateChanged, nil)}

	if c.attempts >= c.opts.MaxAttempts {
		c.log.Warn("client.reconnect_exhausted", "attempts", c.attempts)
		return append(evts, c.eventLocked(EventReconnectExhausted, ErrReconnectExhausted))
	}

	c.attempts++
	delay := Backoff(c.attempts, c.opts.BaseDelay, c.opts.MaxDelay)
	var t *time.Timer
	t = time.AfterFunc(delay, func() { c.retry(t) })
	c.timer = t

	scheduled := c.eventLocked(EventReconnectScheduled, nil)
	scheduled.Attempt = c.attempts
	scheduled.Delay = delay
	return append(evts, scheduled)
}

func (c *Controller) retry(t *time.Timer) {
	c.mu.Lock()
	if c.timer != t || c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = Connecting
	c.log.Debug("client.reconnecting", "attempt", c.attempts)
	evt := c.eventLocked(EventStateChanged, nil)
	c.mu.Unlock()

	c.emit(evt)
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	_ = c.dial(ctx)
}

func (c *Controller) handleFrame(gen uint64, raw []byte) {
	frame, err := protocol.DecodeEvent(raw)
	if err != nil {
		c.log.Debug("client.frame_ignored", "err", err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	var evt Event
	switch f := frame.(type) {
	case protocol.RoomCreated:
		evt = c.replaceRoomLocked(f.Room)
	case protocol.RoomJoined:
		evt = c.replaceRoomLocked(f.Room)
	case protocol.NewMessage:
		c.messages = append(c.messages, f.Message)
		evt = c.eventLocked(EventMessage, nil)
	case protocol.UserJoined:
		evt = c.participantsLocked(f.Participants)
	case protocol.UserLeft:
		evt = c.participantsLocked(f.Participants)
	case protocol.RoomClosed:
		c.room, c.messages = nil, nil
		evt = c.eventLocked(EventRoomClosed, nil)
	case protocol.Error:
		evt = c.eventLocked(EventServerError, &ServerError{Message: f.Message})
	}
	c.mu.Unlock()

	if evt.Kind != "" {
		c.emit(evt)
	}
}

func (c *Controller) replaceRoomLocked(snap domain.RoomSnapshot) Event {
	room := copyRoom(&snap)
	c.room = &room
	c.messages = append([]domain.Message(nil), snap.Messages...)
	return c.eventLocked(EventRoomUpdated, nil)
}

func (c *Controller) participantsLocked(participants []domain.User) Event {
	if c.room == nil {
		return Event{}
	}
	c.room.Participants = append([]domain.User(nil), participants...)
	return c.eventLocked(EventParticipants, nil)
}

// resetLocked closes the transport and forgets every piece of room state.
func (c *Controller) resetLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.state = Disconnected
	c.room, c.messages = nil, nil
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) eventLocked(kind EventKind, err error) Event {
	evt := Event{
		Kind:     kind,
		State:    c.state,
		Messages: append([]domain.Message(nil), c.messages...),
		Err:      err,
	}
	if c.room != nil {
		room := copyRoom(c.room)
		evt.Room = &room
	}
	return evt
}

func (c *Controller) emit(evts ...Event) {
	if c.opts.OnEvent == nil {
		return
	}
	for _, evt := range evts {
		c.opts.OnEvent(evt)
	}
}

func copyRoom(r *domain.RoomSnapshot) domain.RoomSnapshot {
	out := *r
	out.Participants = append([]domain.User(nil), r.Participants...)
	out.Messages = append([]domain.Message(nil), r.Messages...)
	return out
}
