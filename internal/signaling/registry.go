package signaling

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default lifecycle timings for idle rooms.
const (
	// DefaultRoomTimeout is how long a room may sit empty before the
	// reaper may evict it.
	DefaultRoomTimeout = 5 * time.Minute

	// DefaultReapInterval is the reaper's wake-up period.
	DefaultReapInterval = time.Minute
)

// Registry is the process-wide map of rooms. A single mutex serializes
// every operation, keeping room-plus-peers updates atomic. No critical
// section performs network I/O; enqueues on peer outboxes never block.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	roomTimeout time.Duration
}

// NewRegistry creates an empty registry whose rooms are considered idle
// after roomTimeout of emptiness.
func NewRegistry(roomTimeout time.Duration) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		roomTimeout: roomTimeout,
	}
}

// CreateRoom inserts an empty room if absent. Idempotent.
func (reg *Registry) CreateRoom(roomID string) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[roomID]; !ok {
		slog.Info("creating room", "room_id", roomID)
		reg.rooms[roomID] = NewRoom(roomID)
	}
	return roomID
}

// JoinRoom admits a peer into a room, creating the room if needed, and
// returns the post-insert peer count. On success the join notifications
// are enqueued inside the same critical section as the admission, so the
// other peer always observes join and room_info before any frame relayed
// for the newcomer:
//
//	joiner      <- room_info{count}
//	other peer  <- join, room_info{count}
//
// A full room fails with ErrRoomFull and leaves the registry untouched.
func (reg *Registry) JoinRoom(roomID string, p *Peer) (int, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		reg.rooms[roomID] = room
	}

	if err := room.addPeer(p); err != nil {
		return 0, err
	}

	count := room.peerCount()
	slog.Info("peer joined room", "peer_id", p.ID, "room_id", roomID, "peers", count)

	if err := p.enqueue(NewRoomInfo(count)); err != nil {
		slog.Warn("failed to enqueue for peer", "peer_id", p.ID, "room_id", roomID, "error", err)
	}
	room.broadcastToOthers(p.ID, Message{Type: TypeJoin})
	room.broadcastToOthers(p.ID, NewRoomInfo(count))

	return count, nil
}

// LeaveRoom removes a peer and tells the survivors, closing the departed
// peer's outbox. Empty rooms are kept so a momentarily empty room can be
// rejoined under the same id; the reaper evicts them once stale.
func (reg *Registry) LeaveRoom(roomID, peerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return
	}

	removed := room.removePeer(peerID)
	if removed == nil {
		return
	}
	removed.closeOutbox()

	slog.Info("peer left room", "peer_id", peerID, "room_id", roomID)
	room.broadcastToAll(Message{Type: TypeLeave})
	room.broadcastToAll(NewRoomInfo(room.peerCount()))

	if room.peerCount() == 0 {
		slog.Debug("room is now empty, will be reaped after timeout", "room_id", roomID)
	}
}

// RelayMessage forwards a message from one peer to the other peer in the
// room. Unknown rooms are silently ignored.
func (reg *Registry) RelayMessage(roomID, senderID string, msg Message) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		room.broadcastToOthers(senderID, msg)
		room.touch()
	}
}

// SendToPeer enqueues a message for a single peer in a room, e.g. the
// pong reply to an application-level ping.
func (reg *Registry) SendToPeer(roomID, peerID string, msg Message) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return
	}
	for _, p := range room.peers {
		if p.ID == peerID {
			if err := p.enqueue(msg); err != nil {
				slog.Warn("failed to enqueue for peer", "peer_id", peerID, "room_id", roomID, "error", err)
			}
			return
		}
	}
}

// PeerCount returns the number of peers in a room; unknown rooms count as
// empty.
func (reg *Registry) PeerCount(roomID string) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		return room.peerCount()
	}
	return 0
}

// RoomCount reports the registry size.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// CleanupInactiveRooms drops every room that has sat empty beyond the
// idle threshold and returns how many were removed.
func (reg *Registry) CleanupInactiveRooms() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := 0
	for id, room := range reg.rooms {
		if room.isInactive(reg.roomTimeout) {
			slog.Info("cleaning up inactive room", "room_id", id)
			delete(reg.rooms, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("cleaned up inactive rooms", "count", removed)
	}
	return removed
}

// Run is the reaper loop: it wakes every interval and evicts stale rooms
// until ctx is cancelled. Intended to run as a long-lived goroutine.
func (reg *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.CleanupInactiveRooms()
		}
	}
}
