package signaling

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the wire messages exchanged over the
// signaling channel.
type MessageType string

// Message type constants.
const (
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeIceCandidate MessageType = "ice"
	TypeJoin         MessageType = "join"
	TypeLeave        MessageType = "leave"
	TypeChat         MessageType = "chat"
	TypeMediaStatus  MessageType = "media_status"
	TypePeerStatus   MessageType = "peer_status"
	TypeError        MessageType = "error"
	TypeRoomInfo     MessageType = "room_info"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

// Message is one signaling frame. The set of valid types is closed; all
// JSON encoding and decoding lives in this file so the wire shape never
// leaks into the room or registry layers.
//
// Only the fields belonging to the Type are meaningful; the rest stay at
// their zero values.
type Message struct {
	Type MessageType

	// offer / answer
	SDP string

	// ice
	Candidate     string
	SDPMLineIndex uint32
	SDPMid        *string

	// chat and error both carry "message" on the wire
	Text string

	// media_status
	Audio bool
	Video bool

	// peer_status
	Status string

	// room_info
	PeerCount int
}

// NewError builds an error frame.
func NewError(text string) Message {
	return Message{Type: TypeError, Text: text}
}

// NewRoomInfo builds a room_info frame carrying the current peer count.
func NewRoomInfo(peerCount int) Message {
	return Message{Type: TypeRoomInfo, PeerCount: peerCount}
}

// wireMessage is the decode target for every variant. Pointer fields let
// absent keys be told apart from zero values.
type wireMessage struct {
	Type          MessageType `json:"type"`
	SDP           *string     `json:"sdp,omitempty"`
	Candidate     *string     `json:"candidate,omitempty"`
	SDPMLineIndex *uint32     `json:"sdpMLineIndex,omitempty"`
	SDPMid        *string     `json:"sdpMid,omitempty"`
	Message       *string     `json:"message,omitempty"`
	Audio         *bool       `json:"audio,omitempty"`
	Video         *bool       `json:"video,omitempty"`
	Status        *string     `json:"status,omitempty"`
	PeerCount     *int        `json:"peer_count,omitempty"`
}

// MarshalJSON emits exactly the fields of the message's variant.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeOffer, TypeAnswer:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			SDP  string      `json:"sdp"`
		}{m.Type, m.SDP})
	case TypeIceCandidate:
		return json.Marshal(struct {
			Type          MessageType `json:"type"`
			Candidate     string      `json:"candidate"`
			SDPMLineIndex uint32      `json:"sdpMLineIndex"`
			SDPMid        *string     `json:"sdpMid"`
		}{m.Type, m.Candidate, m.SDPMLineIndex, m.SDPMid})
	case TypeChat, TypeError:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Message string      `json:"message"`
		}{m.Type, m.Text})
	case TypeMediaStatus:
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Audio bool        `json:"audio"`
			Video bool        `json:"video"`
		}{m.Type, m.Audio, m.Video})
	case TypePeerStatus:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			Status string      `json:"status"`
		}{m.Type, m.Status})
	case TypeRoomInfo:
		return json.Marshal(struct {
			Type      MessageType `json:"type"`
			PeerCount int         `json:"peer_count"`
		}{m.Type, m.PeerCount})
	case TypeJoin, TypeLeave, TypePing, TypePong:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{m.Type})
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
}

// UnmarshalJSON decodes a frame and validates its discriminator. Fields
// that do not belong to the variant are discarded.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Message{Type: w.Type}
	switch w.Type {
	case TypeOffer, TypeAnswer:
		out.SDP = strVal(w.SDP)
	case TypeIceCandidate:
		out.Candidate = strVal(w.Candidate)
		if w.SDPMLineIndex != nil {
			out.SDPMLineIndex = *w.SDPMLineIndex
		}
		out.SDPMid = w.SDPMid
	case TypeChat, TypeError:
		out.Text = strVal(w.Message)
	case TypeMediaStatus:
		out.Audio = w.Audio != nil && *w.Audio
		out.Video = w.Video != nil && *w.Video
	case TypePeerStatus:
		out.Status = strVal(w.Status)
	case TypeRoomInfo:
		if w.PeerCount != nil {
			out.PeerCount = *w.PeerCount
		}
	case TypeJoin, TypeLeave, TypePing, TypePong:
		// no payload
	default:
		return fmt.Errorf("unknown message type %q", w.Type)
	}

	*m = out
	return nil
}

// ParseMessage decodes one wire frame.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
