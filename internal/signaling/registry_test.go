package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomIdempotent(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)

	reg.CreateRoom("room-1")
	reg.CreateRoom("room-1")

	assert.Equal(t, 1, reg.RoomCount())
	assert.Equal(t, 0, reg.PeerCount("room-1"))
}

func TestJoinRoomAdmission(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)

	a, b, c := NewPeer("a"), NewPeer("b"), NewPeer("c")

	count, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = reg.JoinRoom("room-1", b)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = reg.JoinRoom("room-1", c)
	require.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 2, reg.PeerCount("room-1"))
}

func TestJoinNotificationOrdering(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a, b := NewPeer("a"), NewPeer("b")

	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)

	got := drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, TypeRoomInfo, got[0].Type)
	assert.Equal(t, 1, got[0].PeerCount)

	_, err = reg.JoinRoom("room-1", b)
	require.NoError(t, err)

	// The joiner gets its ack...
	got = drain(t, b)
	require.Len(t, got, 1)
	assert.Equal(t, TypeRoomInfo, got[0].Type)
	assert.Equal(t, 2, got[0].PeerCount)

	// ...and the resident peer sees join, then room_info, in that order.
	got = drain(t, a)
	require.Len(t, got, 2)
	assert.Equal(t, TypeJoin, got[0].Type)
	assert.Equal(t, TypeRoomInfo, got[1].Type)
	assert.Equal(t, 2, got[1].PeerCount)
}

func TestRelayOrderingAndExclusion(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a, b := NewPeer("a"), NewPeer("b")
	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	_, err = reg.JoinRoom("room-1", b)
	require.NoError(t, err)
	drain(t, a)
	drain(t, b)

	for _, text := range []string{"first", "second", "third"} {
		reg.RelayMessage("room-1", "a", Message{Type: TypeChat, Text: text})
	}

	got := drain(t, b)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)

	assert.Empty(t, drain(t, a))
}

func TestRelayToMissingRoomIsIgnored(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)

	reg.RelayMessage("nope", "a", Message{Type: TypeChat, Text: "void"})
	assert.Equal(t, 0, reg.PeerCount("nope"))
	assert.Equal(t, 0, reg.RoomCount())
}

func TestLeaveRoomNotifiesSurvivor(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a, b := NewPeer("a"), NewPeer("b")
	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	_, err = reg.JoinRoom("room-1", b)
	require.NoError(t, err)
	drain(t, a)
	drain(t, b)

	reg.LeaveRoom("room-1", "b")

	got := drain(t, a)
	require.Len(t, got, 2)
	assert.Equal(t, TypeLeave, got[0].Type)
	assert.Equal(t, TypeRoomInfo, got[1].Type)
	assert.Equal(t, 1, got[1].PeerCount)

	// The departed peer's outbox is closed.
	_, ok := <-b.Outbox()
	assert.False(t, ok)

	// The empty-after-leave room is kept for the reaper.
	reg.LeaveRoom("room-1", "a")
	assert.Equal(t, 1, reg.RoomCount())
	assert.Equal(t, 0, reg.PeerCount("room-1"))
}

func TestSoloLeaveNotifiesNobody(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a := NewPeer("a")
	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	drain(t, a)

	reg.LeaveRoom("room-1", "a")

	// No leave frame reaches anyone, including the departed peer.
	assert.Empty(t, drain(t, a))
}

func TestLeaveUnknownPeerIsNoop(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a := NewPeer("a")
	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	drain(t, a)

	reg.LeaveRoom("room-1", "ghost")
	reg.LeaveRoom("no-such-room", "a")

	assert.Equal(t, 1, reg.PeerCount("room-1"))
	assert.Empty(t, drain(t, a))
}

func TestSendToPeerTargetsOnlyThatPeer(t *testing.T) {
	reg := NewRegistry(DefaultRoomTimeout)
	a, b := NewPeer("a"), NewPeer("b")
	_, err := reg.JoinRoom("room-1", a)
	require.NoError(t, err)
	_, err = reg.JoinRoom("room-1", b)
	require.NoError(t, err)
	drain(t, a)
	drain(t, b)

	reg.SendToPeer("room-1", "a", Message{Type: TypePong})

	got := drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, TypePong, got[0].Type)
	assert.Empty(t, drain(t, b))
}

func TestCleanupInactiveRooms(t *testing.T) {
	reg := NewRegistry(20 * time.Millisecond)

	reg.CreateRoom("stale")
	occupied := NewPeer("a")
	_, err := reg.JoinRoom("busy", occupied)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	removed := reg.CleanupInactiveRooms()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, reg.RoomCount())
	assert.Equal(t, 1, reg.PeerCount("busy"))
}

func TestReaperEvictsStaleRooms(t *testing.T) {
	reg := NewRegistry(20 * time.Millisecond)
	reg.CreateRoom("stale")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.Run(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return reg.RoomCount() == 0
	}, time.Second, 10*time.Millisecond)
}
