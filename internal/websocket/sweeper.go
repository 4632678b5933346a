package websocket

import (
	"time"

	"github.com/thereayou/hushroom/internal/events"
)

// SweepResult reports what one retention pass removed.
type SweepResult struct {
	ExpiredMessages int
	RemovedRooms    int
}

// Sweep drops messages older than the retention window and deletes rooms left
// with no connections and no messages. Run calls it on every tick; it is the
// only thing that reclaims rooms whose peers vanished without a close.
func (h *Hub) Sweep(now time.Time) SweepResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	var res SweepResult
	for _, id := range h.store.RoomIDs() {
		room, _ := h.store.Room(id)
		res.ExpiredMessages += room.Prune(now, h.retention)

		if h.store.PeerCount(id) == 0 && len(room.Messages) == 0 {
			h.store.DeleteRoom(id)
			res.RemovedRooms++
			h.publish(events.KindRoomSwept, id, len(room.Participants), 0)
		}
	}
	return res
}
