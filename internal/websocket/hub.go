package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/hushroom/internal/events"
	"github.com/thereayou/hushroom/pkg/protocol"
)

const (
	DefaultRetention     = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Options tunes a Hub. Zero values fall back to the defaults.
type Options struct {
	Retention     time.Duration
	SweepInterval time.Duration
	IDGenerator   IDGenerator
	// Now is the hub clock, replaceable in tests.
	Now func() time.Time
}

// Hub is the single owner of relay state. Every room lifecycle operation and
// every sweep runs under mu, so a mutation and the broadcast that announces it
// are observed as one step.
type Hub struct {
	mu      sync.Mutex
	store   *Store
	clients map[uuid.UUID]Peer

	register   chan *Client
	unregister chan *Client

	retention     time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	log    *slog.Logger
	events events.Publisher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub. A nil publisher drops lifecycle events.
func NewHub(log *slog.Logger, publisher events.Publisher, opts Options) *Hub {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:         NewStore(opts.IDGenerator),
		clients:       make(map[uuid.UUID]Peer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		retention:     opts.Retention,
		sweepInterval: opts.SweepInterval,
		now:           opts.Now,
		log:           log,
		events:        publisher,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// Run processes registrations and drives the retention sweeper until Stop is
// called. A panic in one step is logged and the loop carries on.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.guard("register", func() { h.registerClient(client) })

		case client := <-h.unregister:
			h.guard("unregister", func() { h.Disconnect(client) })

		case <-ticker.C:
			h.guard("sweep", func() {
				res := h.Sweep(h.now())
				if res.ExpiredMessages > 0 || res.RemovedRooms > 0 {
					h.log.Debug("hub.sweep", "expired_messages", res.ExpiredMessages, "removed_rooms", res.RemovedRooms)
				}
			})
		}
	}
}

func (h *Hub) guard(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("hub.panic", "op", op, "panic", r)
		}
	}()
	fn()
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	peers := make([]Peer, 0, len(h.clients))
	for _, p := range h.clients {
		peers = append(peers, p)
	}
	h.clients = make(map[uuid.UUID]Peer)
	h.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
	h.log.Info("hub.stopped", "closed_connections", len(peers))
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register hands a new connection to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.Close()
	}
}

// Unregister asks the hub to forget a connection.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("hub.client_registered", "conn_id", client.ID(), "addr", client.addr, "connections", count)
}

// Disconnect handles a closed connection. A bound connection departs its room
// exactly like an explicit leave_room, and the connection is then removed from
// every room's connection set.
func (h *Hub) Disconnect(p Peer) {
	count := h.forget(p)
	p.Close()
	h.log.Info("hub.client_unregistered", "conn_id", p.ID(), "connections", count)
}

func (h *Hub) forget(p Peer) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.store.BindingFor(p); ok {
		h.leaveUnsafe(p, b.RoomID, b.UserID)
	}
	h.store.DetachAll(p)
	delete(h.clients, p.ID())
	return len(h.clients)
}

// Stats returns the number of active rooms and open connections.
func (h *Hub) Stats() (rooms, connections int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Len(), len(h.clients)
}

// Retention returns the message retention window.
func (h *Hub) Retention() time.Duration {
	return h.retention
}

// sendUnsafe delivers a frame to one connection, dropping it on failure.
func (h *Hub) sendUnsafe(p Peer, frame protocol.Frame) {
	payload, err := protocol.Encode(frame)
	if err != nil {
		h.log.Error("hub.encode", "type", frame.FrameType(), "err", err)
		return
	}
	if err := p.Send(payload); err != nil {
		h.log.Warn("hub.send_failed", "conn_id", p.ID(), "type", frame.FrameType(), "err", err)
		p.Close()
	}
}

func (h *Hub) publish(kind events.Kind, roomID string, participants, messages int) {
	h.events.Publish(events.Event{
		Kind:         kind,
		RoomID:       roomID,
		Participants: participants,
		Messages:     messages,
		At:           h.now(),
	})
}
