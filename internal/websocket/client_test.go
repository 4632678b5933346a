package websocket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereayou/hushroom/pkg/protocol"
)

type handlerFunc func(p Peer, raw []byte) error

func (f handlerFunc) HandleMessage(p Peer, raw []byte) error {
	return f(p, raw)
}

func nextEvent(t *testing.T, c *Client) protocol.Event {
	t.Helper()
	select {
	case raw := <-c.send:
		evt, err := protocol.DecodeEvent(raw)
		require.NoError(t, err)
		return evt
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func TestClient_DispatchContainsHandlerPanic(t *testing.T) {
	req := require.New(t)
	hub, _, _ := newTestHub(t)
	c := NewClient(hub, nil, "127.0.0.1", ClientOptions{SendBuffer: 4})

	calls := 0
	handler := handlerFunc(func(Peer, []byte) error {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		return nil
	})

	req.NotPanics(func() { c.dispatch(handler, []byte(`{"type":"create_room"}`)) })
	req.Equal(protocol.NewError("Internal server error"), nextEvent(t, c))

	// The connection keeps serving frames afterwards.
	c.dispatch(handler, []byte(`{"type":"create_room"}`))
	req.Equal(2, calls)
	req.Empty(c.send)
}

func TestClient_DispatchReportsHandlerErrors(t *testing.T) {
	hub, _, _ := newTestHub(t)
	c := NewClient(hub, nil, "127.0.0.1", ClientOptions{SendBuffer: 4})

	c.dispatch(handlerFunc(func(Peer, []byte) error { return ErrRoomNotFound }), nil)
	require.Equal(t, protocol.NewError("Room not found"), nextEvent(t, c))

	c.dispatch(handlerFunc(func(Peer, []byte) error { return errors.New("disk full") }), nil)
	require.Equal(t, protocol.NewError("Internal server error"), nextEvent(t, c))
}
