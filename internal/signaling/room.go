package signaling

import (
	"errors"
	"log/slog"
	"time"
)

// MaxPeersPerRoom is the room capacity for a 1:1 call.
const MaxPeersPerRoom = 2

// ErrRoomFull is returned when a third peer tries to join a room.
var ErrRoomFull = errors.New("Room is full (max 2 peers for 1:1 call)")

// Room is a rendezvous point for up to two peers. All methods must be
// called with the registry lock held; a Room has no locking of its own.
type Room struct {
	ID           string
	peers        []*Peer
	createdAt    time.Time
	lastActivity time.Time
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	now := time.Now()
	return &Room{
		ID:           id,
		peers:        make([]*Peer, 0, MaxPeersPerRoom),
		createdAt:    now,
		lastActivity: now,
	}
}

func (r *Room) isFull() bool {
	return len(r.peers) >= MaxPeersPerRoom
}

func (r *Room) peerCount() int {
	return len(r.peers)
}

// addPeer installs a peer, failing with ErrRoomFull at capacity.
func (r *Room) addPeer(p *Peer) error {
	if r.isFull() {
		return ErrRoomFull
	}
	r.peers = append(r.peers, p)
	r.lastActivity = time.Now()
	return nil
}

// removePeer removes the peer with the given id and returns it, or nil if
// it was not in the room.
func (r *Room) removePeer(peerID string) *Peer {
	r.lastActivity = time.Now()
	for i, p := range r.peers {
		if p.ID == peerID {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			return p
		}
	}
	return nil
}

// broadcastToOthers enqueues msg for every peer except the sender.
// Enqueue failures are logged and swallowed: the caller is relaying on
// behalf of another peer and must not fail.
func (r *Room) broadcastToOthers(senderID string, msg Message) {
	for _, p := range r.peers {
		if p.ID == senderID {
			continue
		}
		if err := p.enqueue(msg); err != nil {
			slog.Warn("failed to enqueue for peer", "peer_id", p.ID, "room_id", r.ID, "error", err)
		}
	}
}

// broadcastToAll enqueues msg for every peer in the room.
func (r *Room) broadcastToAll(msg Message) {
	for _, p := range r.peers {
		if err := p.enqueue(msg); err != nil {
			slog.Warn("failed to enqueue for peer", "peer_id", p.ID, "room_id", r.ID, "error", err)
		}
	}
}

// touch advances the activity timestamp.
func (r *Room) touch() {
	r.lastActivity = time.Now()
}

// isInactive reports whether the room has been empty for at least the
// idle threshold.
func (r *Room) isInactive(timeout time.Duration) bool {
	return len(r.peers) == 0 && time.Since(r.lastActivity) >= timeout
}
