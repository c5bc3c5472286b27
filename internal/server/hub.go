package server

import (
	"encoding/json"
	"log/slog"

	"github.com/quicktalk/quicktalk/internal/signaling"
)

// inbound pairs a decoded message with the connection it arrived on.
type inbound struct {
	msg    *signaling.Message
	sender *Client
}

// Hub is the coordinator's event-serialization point. All registry
// mutations and all routing decisions happen on the single goroutine
// running Run, so membership changes for a room never interleave.
type Hub struct {
	registry *Registry

	register   chan *Client
	unregister chan *Client
	inbound    chan *inbound
}

// NewHub creates a hub with an empty registry.
func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inbound),
	}
}

// Run processes registration, disconnects and signaling traffic until the
// process exits. It must run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// Not in a room yet; membership starts with
			// create-room or join-room.
			slog.Info("client connected", "remote", client.conn.RemoteAddr())

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case in := <-h.inbound:
			h.dispatch(in)
		}
	}
}

func (h *Hub) dispatch(in *inbound) {
	switch in.msg.Type {
	case signaling.TypeCreateRoom:
		h.handleCreateRoom(in)

	case signaling.TypeJoinRoom:
		h.handleJoinRoom(in)

	case signaling.TypeLeaveRoom:
		h.handleLeaveRoom(in.sender)

	case signaling.TypeOffer, signaling.TypeAnswer,
		signaling.TypeICECandidate, signaling.TypeChatMessage:
		h.route(in)

	default:
		slog.Warn("unknown message type",
			"type", in.msg.Type, "remote", in.sender.conn.RemoteAddr())
	}
}

func (h *Hub) handleCreateRoom(in *inbound) {
	var payload signaling.CreateRoomPayload
	if err := json.Unmarshal(in.msg.Payload, &payload); err != nil {
		in.sender.sendError("malformed create-room payload")
		return
	}
	in.sender.DisplayName = payload.DisplayName

	roomID, err := h.registry.CreateRoom(payload.RoomID, in.sender)
	if err != nil {
		slog.Warn("create-room rejected", "error", err, "remote", in.sender.conn.RemoteAddr())
		in.sender.sendError(err.Error())
		return
	}

	slog.Info("room created", "room", roomID, "name", payload.DisplayName)
	in.sender.send <- &signaling.Message{
		Type:    signaling.TypeRoomCreated,
		RoomID:  roomID,
		Payload: signaling.MustMarshal(signaling.RoomCreatedPayload{RoomID: roomID}),
	}
}

func (h *Hub) handleJoinRoom(in *inbound) {
	var payload signaling.JoinRoomPayload
	if err := json.Unmarshal(in.msg.Payload, &payload); err != nil {
		in.sender.sendError("malformed join-room payload")
		return
	}
	in.sender.DisplayName = payload.DisplayName

	peer, err := h.registry.JoinRoom(payload.RoomID, in.sender)
	if err != nil {
		slog.Warn("join-room rejected",
			"room", payload.RoomID, "error", err, "remote", in.sender.conn.RemoteAddr())
		in.sender.sendError(err.Error())
		return
	}

	slog.Info("client joined room", "room", payload.RoomID, "name", payload.DisplayName)

	var joinedPeer *signaling.PeerInfo
	if peer != nil {
		joinedPeer = &signaling.PeerInfo{DisplayName: peer.DisplayName}
		peer.send <- &signaling.Message{
			Type:   signaling.TypePeerJoined,
			RoomID: payload.RoomID,
			Payload: signaling.MustMarshal(signaling.PeerInfo{
				DisplayName: in.sender.DisplayName,
			}),
		}
	}

	in.sender.send <- &signaling.Message{
		Type:   signaling.TypeJoinSuccess,
		RoomID: payload.RoomID,
		Payload: signaling.MustMarshal(signaling.JoinSuccessPayload{
			RoomID: payload.RoomID,
			Peer:   joinedPeer,
		}),
	}
}

// handleLeaveRoom handles an explicit leave-room. Leaving while not in a
// room is a no-op, so an explicit leave followed by the transport
// disconnect removes membership exactly once.
func (h *Hub) handleLeaveRoom(c *Client) {
	roomID := c.RoomID
	remaining, left := h.registry.LeaveRoom(c)
	if !left {
		return
	}

	slog.Info("client left room", "room", roomID, "name", c.DisplayName)
	if remaining != nil {
		remaining.send <- &signaling.Message{Type: signaling.TypePeerLeft, RoomID: roomID}
	}
}

// handleDisconnect runs for every closed connection, whether or not a
// leave-room was sent first. Ungraceful disconnects are the common case.
func (h *Hub) handleDisconnect(c *Client) {
	slog.Info("client disconnected", "remote", c.conn.RemoteAddr())
	h.handleLeaveRoom(c)
	close(c.send)
}
