package signaling

import (
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages
)

// Client drives one websocket connection: it owns the wire, pumps the
// peer's outbox to the socket, parses inbound frames into typed messages
// and hands them to the registry.
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	roomID   string
	peer     *Peer
}

// NewClient wraps an upgraded websocket connection with a fresh peer
// identity for the given room.
func NewClient(registry *Registry, conn *websocket.Conn, roomID string) *Client {
	return &Client{
		registry: registry,
		conn:     conn,
		roomID:   roomID,
		peer:     NewPeer(uuid.NewString()),
	}
}

// Run joins the room and pumps the connection until it closes. It blocks
// for the lifetime of the connection; the caller's goroutine becomes the
// read pump.
func (c *Client) Run() {
	slog.Info("new websocket connection", "peer_id", c.peer.ID, "room_id", c.roomID)

	if _, err := c.registry.JoinRoom(c.roomID, c.peer); err != nil {
		slog.Info("rejecting join", "peer_id", c.peer.ID, "room_id", c.roomID, "reason", err)
		c.reject(err)
		return
	}

	go c.writePump()
	c.readPump()
}

// reject sends a single typed error frame and closes the connection.
func (c *Client) reject(reason error) {
	defer c.conn.Close()

	data, err := json.Marshal(NewError(reason.Error()))
	if err != nil {
		slog.Error("failed to serialize message", "error", err)
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump pumps frames from the websocket into the registry.
//
// It runs in the connection's goroutine; all reads happen here so there
// is at most one reader per connection. When it returns the peer leaves
// its room, which also shuts the write pump down via the outbox.
func (c *Client) readPump() {
	defer func() {
		c.registry.LeaveRoom(c.roomID, c.peer.ID)
		c.conn.Close()
		slog.Info("peer disconnected", "peer_id", c.peer.ID, "room_id", c.roomID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "peer_id", c.peer.ID, "error", err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleFrame(data)
		case websocket.BinaryMessage:
			// Binary frames carrying valid text are treated as text;
			// anything else is ignored.
			if utf8.Valid(data) {
				c.handleFrame(data)
			}
		}
	}
}

// handleFrame parses one inbound frame and dispatches it. Parse failures
// drop the frame but keep the connection.
func (c *Client) handleFrame(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		slog.Warn("invalid frame from peer", "peer_id", c.peer.ID, "error", err)
		return
	}

	slog.Debug("received message", "type", msg.Type, "peer_id", c.peer.ID, "room_id", c.roomID)

	switch msg.Type {
	case TypeOffer, TypeAnswer, TypeIceCandidate, TypeChat, TypeMediaStatus:
		c.registry.RelayMessage(c.roomID, c.peer.ID, msg)
	case TypePing:
		// Application-level keepalive for clients that cannot observe
		// transport pings; answered to the sender.
		c.registry.SendToPeer(c.roomID, c.peer.ID, Message{Type: TypePong})
	case TypeLeave:
		// The actual departure happens on the disconnect path.
		slog.Info("peer signaling leave", "peer_id", c.peer.ID, "room_id", c.roomID)
	default:
		// join, room_info, peer_status, error, pong: server-minted
		// types a client has no business sending.
		slog.Debug("ignoring message type", "type", msg.Type, "peer_id", c.peer.ID)
	}
}

// writePump pumps messages from the peer's outbox to the websocket.
//
// A goroutine running writePump is started per connection; all writes
// happen here so there is at most one writer per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.peer.Outbox():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the outbox.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("failed to serialize message", "type", msg.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Error("websocket write error", "peer_id", c.peer.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
