package websocket

import (
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/hushroom/pkg/domain"
)

const (
	roomIDLength   = 8
	roomIDAttempts = 8
	// Crockford base32 alphabet: no I, L, O or U.
	roomIDAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// Peer is one open connection as seen by the store and the hub.
type Peer interface {
	ID() uuid.UUID
	// Send enqueues payload without blocking.
	Send(payload []byte) error
	Close()
}

// IDGenerator produces candidate room ids.
type IDGenerator func() (string, error)

// GenerateRoomID returns an 8 character code with 40 bits of entropy.
func GenerateRoomID() (string, error) {
	buf := make([]byte, roomIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(buf), nil
}

// Binding ties a connection to the room and user it joined as.
type Binding struct {
	RoomID string
	UserID string
	peer   Peer
}

type roomEntry struct {
	room  *domain.Room
	peers map[Peer]struct{}
}

// Store owns every room and connection binding. It does no locking of its
// own: the hub holds its mutex around every call.
type Store struct {
	rooms    map[string]*roomEntry
	byPeer   map[Peer]*Binding
	newID    IDGenerator
	attempts int
}

// NewStore creates an empty store. A nil generator means GenerateRoomID.
func NewStore(newID IDGenerator) *Store {
	if newID == nil {
		newID = GenerateRoomID
	}
	return &Store{
		rooms:    make(map[string]*roomEntry),
		byPeer:   make(map[Peer]*Binding),
		newID:    newID,
		attempts: roomIDAttempts,
	}
}

// CreateRoom allocates a fresh id and stores a room owned by owner. Ids that
// collide with a live room are regenerated.
func (s *Store) CreateRoom(owner domain.User, now time.Time) (*domain.Room, error) {
	for i := 0; i < s.attempts; i++ {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate room id: %w", err)
		}
		if _, taken := s.rooms[id]; taken {
			continue
		}
		return s.AddRoom(id, owner, now), nil
	}
	return nil, ErrRoomIDExhausted
}

// AddRoom stores a room under a caller chosen id. Callers check that the id
// is free first.
func (s *Store) AddRoom(id string, owner domain.User, now time.Time) *domain.Room {
	room := domain.NewRoom(id, owner, now)
	s.rooms[id] = &roomEntry{room: room, peers: make(map[Peer]struct{})}
	return room
}

// Room looks up an active room.
func (s *Store) Room(id string) (*domain.Room, bool) {
	e, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	return e.room, true
}

// DeleteRoom removes the room and every binding that points at it.
func (s *Store) DeleteRoom(id string) bool {
	if _, ok := s.rooms[id]; !ok {
		return false
	}
	delete(s.rooms, id)
	for p, b := range s.byPeer {
		if b.RoomID == id {
			delete(s.byPeer, p)
		}
	}
	return true
}

// RoomIDs returns the ids of all active rooms in sorted order.
func (s *Store) RoomIDs() []string {
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of active rooms.
func (s *Store) Len() int {
	return len(s.rooms)
}

// Attach adds p to the room's connection set.
func (s *Store) Attach(p Peer, roomID string) {
	if e, ok := s.rooms[roomID]; ok {
		e.peers[p] = struct{}{}
	}
}

// Detach removes p from the room's connection set.
func (s *Store) Detach(p Peer, roomID string) bool {
	e, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := e.peers[p]; !ok {
		return false
	}
	delete(e.peers, p)
	return true
}

// Peers returns the room's open connections.
func (s *Store) Peers(roomID string) []Peer {
	e, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	peers := make([]Peer, 0, len(e.peers))
	for p := range e.peers {
		peers = append(peers, p)
	}
	return peers
}

// PeerCount returns the size of the room's connection set.
func (s *Store) PeerCount(roomID string) int {
	if e, ok := s.rooms[roomID]; ok {
		return len(e.peers)
	}
	return 0
}

// Bind records that p speaks for userID in roomID, replacing any earlier
// binding of p. Bindings are per connection: two connections may speak for
// the same user, and each one's close runs its own departure.
func (s *Store) Bind(userID string, p Peer, roomID string) {
	s.byPeer[p] = &Binding{RoomID: roomID, UserID: userID, peer: p}
}

// Unbind drops p's binding if it points at roomID.
func (s *Store) Unbind(p Peer, roomID string) {
	if b, ok := s.byPeer[p]; ok && b.RoomID == roomID {
		delete(s.byPeer, p)
	}
}

// DetachAll removes p from every room's connection set and drops its binding.
func (s *Store) DetachAll(p Peer) int {
	n := 0
	for _, e := range s.rooms {
		if _, ok := e.peers[p]; ok {
			delete(e.peers, p)
			n++
		}
	}
	delete(s.byPeer, p)
	return n
}

// BindingFor returns the binding of connection p.
func (s *Store) BindingFor(p Peer) (Binding, bool) {
	b, ok := s.byPeer[p]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}
