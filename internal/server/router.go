package server

import (
	"log/slog"

	"github.com/quicktalk/quicktalk/internal/signaling"
)

// route relays a signaling or chat message to the other member(s) of the
// sender's room. Payloads are forwarded verbatim; the router never
// transforms or persists them.
//
// Failures are fire-and-forget: a message whose room binding is invalid
// for the sender is dropped with a warning, and a relay with no recipient
// is a silent no-op (the peer may simply not have joined yet).
func (h *Hub) route(in *inbound) {
	peers, ok := h.registry.Peers(in.msg.RoomID, in.sender)
	if !ok {
		slog.Warn("dropping message with invalid room binding",
			"type", in.msg.Type,
			"room", in.msg.RoomID,
			"remote", in.sender.conn.RemoteAddr())
		return
	}

	switch in.msg.Type {
	case signaling.TypeChatMessage:
		// Broadcast to every other member.
		for _, peer := range peers {
			peer.send <- in.msg
		}

	default:
		// Offer, answer and ice-candidate are unicast: exactly one
		// other member may exist.
		if len(peers) == 0 {
			return
		}
		peers[0].send <- in.msg
	}
}
