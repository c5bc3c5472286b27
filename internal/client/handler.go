package client

import (
	"encoding/json"

	"github.com/quicktalk/quicktalk/internal/signaling"
)

// Handler demultiplexes inbound coordinator messages onto typed channels.
// A Handler is scoped to one call attempt: it is created after Connect and
// closed with the session, so no subscriptions leak across reconnects.
type Handler struct {
	client *Client

	RoomCreated chan string
	JoinSuccess chan *signaling.JoinSuccessPayload
	PeerJoined  chan *signaling.PeerInfo
	PeerLeft    chan struct{}
	Offer       chan *signaling.SessionDescriptionPayload
	Answer      chan *signaling.SessionDescriptionPayload
	Candidate   chan *signaling.ICECandidatePayload
	Chat        chan *signaling.ChatPayload
	Error       chan string
	Done        chan struct{}
}

// NewHandler creates a handler for the given client.
func NewHandler(c *Client) *Handler {
	return &Handler{
		client:      c,
		RoomCreated: make(chan string, 1),
		JoinSuccess: make(chan *signaling.JoinSuccessPayload, 1),
		PeerJoined:  make(chan *signaling.PeerInfo, 1),
		PeerLeft:    make(chan struct{}, 1),
		Offer:       make(chan *signaling.SessionDescriptionPayload, 4),
		Answer:      make(chan *signaling.SessionDescriptionPayload, 4),
		Candidate:   make(chan *signaling.ICECandidatePayload, 32),
		Chat:        make(chan *signaling.ChatPayload, 32),
		Error:       make(chan string, 1),
		Done:        make(chan struct{}),
	}
}

// Start consumes the client's incoming stream until the connection drops,
// then closes Done. Run it in its own goroutine.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case signaling.TypeRoomCreated:
			var payload signaling.RoomCreatedPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.RoomCreated <- payload.RoomID
			}

		case signaling.TypeJoinSuccess:
			var payload signaling.JoinSuccessPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.JoinSuccess <- &payload
			}

		case signaling.TypePeerJoined:
			var peer signaling.PeerInfo
			if json.Unmarshal(msg.Payload, &peer) == nil {
				h.PeerJoined <- &peer
			}

		case signaling.TypePeerLeft:
			select {
			case h.PeerLeft <- struct{}{}:
			default:
			}

		case signaling.TypeOffer:
			var desc signaling.SessionDescriptionPayload
			if json.Unmarshal(msg.Payload, &desc) == nil {
				h.Offer <- &desc
			}

		case signaling.TypeAnswer:
			var desc signaling.SessionDescriptionPayload
			if json.Unmarshal(msg.Payload, &desc) == nil {
				h.Answer <- &desc
			}

		case signaling.TypeICECandidate:
			var candidate signaling.ICECandidatePayload
			if json.Unmarshal(msg.Payload, &candidate) == nil {
				h.Candidate <- &candidate
			}

		case signaling.TypeChatMessage:
			var chat signaling.ChatPayload
			if json.Unmarshal(msg.Payload, &chat) == nil {
				h.Chat <- &chat
			}

		case signaling.TypeError:
			var errPayload signaling.ErrorPayload
			if json.Unmarshal(msg.Payload, &errPayload) != nil {
				errPayload.Error = "unknown error from server"
			}
			select {
			case h.Error <- errPayload.Error:
			default:
			}
		}
	}
}
