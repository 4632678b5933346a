package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hushroom/internal/events"
	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/protocol"
)

// fakePeer records every payload it accepts.
type fakePeer struct {
	id uuid.UUID

	mu     sync.Mutex
	frames [][]byte
	failed bool
	closed bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{id: uuid.New()}
}

func (p *fakePeer) ID() uuid.UUID { return p.id }

func (p *fakePeer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClientClosed
	}
	if p.failed {
		return ErrClientQueueFull
	}
	p.frames = append(p.frames, payload)
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// events decodes everything received so far and clears the buffer.
func (p *fakePeer) events(t *testing.T) []protocol.Event {
	t.Helper()
	p.mu.Lock()
	frames := p.frames
	p.frames = nil
	p.mu.Unlock()

	out := make([]protocol.Event, 0, len(frames))
	for _, raw := range frames {
		evt, err := protocol.DecodeEvent(raw)
		require.NoError(t, err)
		out = append(out, evt)
	}
	return out
}

// recordingPublisher keeps published lifecycle events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// fakeClock is a settable hub clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs hands out the given ids in order.
func sequentialIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id, nil
	}
}

func newTestHub(t *testing.T, ids ...string) (*Hub, *fakeClock, *recordingPublisher) {
	t.Helper()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	pub := &recordingPublisher{}
	opts := Options{
		Retention:     10 * time.Minute,
		SweepInterval: time.Minute,
		Now:           clock.Now,
	}
	if len(ids) > 0 {
		opts.IDGenerator = sequentialIDs(ids...)
	}
	return NewHub(discardLogger(), pub, opts), clock, pub
}

func user(id, name string) domain.User {
	return domain.User{ID: id, Username: name}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
