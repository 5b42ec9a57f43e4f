package signaling

import (
	"errors"
	"time"
)

// outboxSize is the outbound queue depth per peer. A WebRTC session
// exchanges a few dozen signaling frames, so this is never reached in
// practice.
const outboxSize = 256

var (
	// ErrPeerGone reports an enqueue on a peer whose connection has
	// already been torn down.
	ErrPeerGone = errors.New("peer has disconnected")

	errOutboxFull = errors.New("peer outbox is full")
)

// Peer is one connected client inside a room: an opaque identity plus the
// producer end of its outbound message queue. The consumer end belongs to
// the peer's write pump and nobody else.
type Peer struct {
	ID       string
	JoinedAt time.Time

	outbox chan Message

	// closed is written under the registry lock; once set the outbox
	// channel is closed and enqueues fail with ErrPeerGone.
	closed bool
}

// NewPeer creates a peer handle with a fresh outbound queue.
func NewPeer(id string) *Peer {
	return &Peer{
		ID:       id,
		JoinedAt: time.Now(),
		outbox:   make(chan Message, outboxSize),
	}
}

// Outbox returns the consumer end of the peer's queue.
func (p *Peer) Outbox() <-chan Message {
	return p.outbox
}

// enqueue places a message on the peer's queue without blocking. Callers
// must hold the registry lock, which serializes enqueue against
// closeOutbox.
func (p *Peer) enqueue(msg Message) error {
	if p.closed {
		return ErrPeerGone
	}
	select {
	case p.outbox <- msg:
		return nil
	default:
		return errOutboxFull
	}
}

// closeOutbox shuts the queue, stopping the peer's write pump. Idempotent;
// callers must hold the registry lock.
func (p *Peer) closeOutbox() {
	if !p.closed {
		p.closed = true
		close(p.outbox)
	}
}
