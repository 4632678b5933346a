package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereayou/hushroom/pkg/protocol"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	DefaultMaxMessageSize = 4 * 1024
	DefaultSendBuffer     = 256
)

// ClientMessageHandler handles one inbound frame from a connection.
type ClientMessageHandler interface {
	HandleMessage(p Peer, raw []byte) error
}

// ClientOptions tunes a single connection.
type ClientOptions struct {
	MaxMessageSize int64
	SendBuffer     int
	RateBurst      int
	RateRefill     time.Duration
}

// Client is the server side of one websocket connection. It owns a read pump
// and a write pump goroutine and a bounded outbound queue.
type Client struct {
	id      uuid.UUID
	conn    *websocket.Conn
	hub     *Hub
	addr    string
	maxSize int64
	send    chan []byte
	limiter *rateLimiter
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, addr string, opts ClientOptions) *Client {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	id := uuid.New()
	return &Client{
		id:      id,
		conn:    conn,
		hub:     hub,
		addr:    addr,
		maxSize: opts.MaxMessageSize,
		send:    make(chan []byte, opts.SendBuffer),
		limiter: newRateLimiter(opts.RateBurst, opts.RateRefill),
		log:     hub.log.With("conn_id", id),
	}
}

func (c *Client) ID() uuid.UUID {
	return c.id
}

// Send enqueues payload for the write pump. It never blocks: a full queue is
// reported as ErrClientQueueFull.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// Close stops the write pump, which then closes the socket. Safe to call more
// than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames and hands them to handler until the connection
// fails. Errors from handler are reported back to the peer as error frames.
func (c *Client) ReadPump(handler ClientMessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Debug("client.rate_limited")
			continue
		}

		c.dispatch(handler, raw)
	}
}

// dispatch runs the handler for one frame. A panic is logged and contained
// so that it only costs this frame.
func (c *Client) dispatch(handler ClientMessageHandler, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("client.handler_panic", "panic", r)
			c.sendError(errors.New("handler panic"))
		}
	}()

	if err := handler.HandleMessage(c, raw); err != nil {
		c.log.Debug("client.frame_rejected", "err", err)
		c.sendError(err)
	}
}

// WritePump writes queued frames and keepalive pings until the queue is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("client.write_failed", "err", err)
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("client.frame_too_large", "addr", c.addr)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
		c.log.Warn("client.read_error", "addr", c.addr, "err", err)
	default:
		c.log.Debug("client.disconnected", "addr", c.addr, "err", err)
	}
}

func (c *Client) sendError(err error) {
	payload, encErr := protocol.Encode(protocol.NewError(ClientErrorMessage(err)))
	if encErr != nil {
		return
	}
	if sendErr := c.Send(payload); sendErr != nil {
		c.log.Debug("client.error_frame_dropped", "err", sendErr)
	}
}
