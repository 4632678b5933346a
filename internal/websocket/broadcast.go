package websocket

import "github.com/thereayou/hushroom/pkg/protocol"

// broadcastUnsafe encodes frame once and enqueues it on every connection in
// the room except exclude. A connection that cannot take the frame is dropped
// from the room and closed; delivery to the others carries on. It returns the
// number of connections that accepted the frame.
func (h *Hub) broadcastUnsafe(roomID string, frame protocol.Frame, exclude Peer) int {
	payload, err := protocol.Encode(frame)
	if err != nil {
		h.log.Error("hub.encode", "type", frame.FrameType(), "err", err)
		return 0
	}

	delivered := 0
	for _, p := range h.store.Peers(roomID) {
		if exclude != nil && p == exclude {
			continue
		}
		if err := p.Send(payload); err != nil {
			h.store.Detach(p, roomID)
			p.Close()
			h.log.Warn("hub.broadcast_dropped", "room_id", roomID, "conn_id", p.ID(), "err", err)
			continue
		}
		delivered++
	}
	return delivered
}
