package signaling

import "encoding/json"

// Message is the envelope for all websocket traffic between a client and
// the coordinator, in both directions.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event name constants.
const (
	// Client to coordinator.
	TypeCreateRoom = "create-room"
	TypeJoinRoom   = "join-room"
	TypeLeaveRoom  = "leave-room"

	// Relayed verbatim between room members.
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeChatMessage  = "chat-message"

	// Coordinator to client.
	TypeRoomCreated = "room-created"
	TypeJoinSuccess = "join-success"
	TypePeerJoined  = "peer-joined"
	TypePeerLeft    = "peer-left"
	TypeError       = "error"
)

// CreateRoomPayload requests room creation. RoomID is optional; the
// coordinator generates one when it is empty.
type CreateRoomPayload struct {
	RoomID      string `json:"room_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// JoinRoomPayload requests membership of an existing room.
type JoinRoomPayload struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

// RoomCreatedPayload confirms creation and carries the assigned room id.
type RoomCreatedPayload struct {
	RoomID string `json:"room_id"`
}

// PeerInfo describes the other member of a room.
type PeerInfo struct {
	DisplayName string `json:"display_name"`
}

// JoinSuccessPayload confirms a join and describes the peer already in the
// room, if any.
type JoinSuccessPayload struct {
	RoomID string    `json:"room_id"`
	Peer   *PeerInfo `json:"peer,omitempty"`
}

// SessionDescriptionPayload carries an SDP offer or answer.
type SessionDescriptionPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidatePayload carries one trickle ICE candidate.
type ICECandidatePayload struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdp_mid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdp_mline_index,omitempty"`
	UsernameFragment *string `json:"username_fragment,omitempty"`
}

// ChatPayload carries one chat message.
type ChatPayload struct {
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

// ErrorPayload is a targeted rejection sent only to the offending client.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MustMarshal encodes a payload that cannot fail to marshal. Payload
// structs here contain only strings and pointers to strings, so a failure
// is a programming error.
func MustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
