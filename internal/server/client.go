package server

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quicktalk/quicktalk/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP session descriptions
	// fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection. A connection handle belongs
// to at most one room at a time; RoomID and DisplayName are owned by the
// hub goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	RoomID      string
	DisplayName string

	// send is the outbound queue, drained by writePump.
	send chan *signaling.Message
}

func (c *Client) sendError(reason string) {
	c.send <- &signaling.Message{
		Type:    signaling.TypeError,
		Payload: signaling.MustMarshal(signaling.ErrorPayload{Error: reason}),
	}
}

// readPump pumps messages from the websocket connection to the hub.
// There is at most one reader per connection: this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("read error", "remote", c.conn.RemoteAddr(), "error", err)
			}
			break
		}

		c.hub.inbound <- &inbound{msg: &msg, sender: c}
	}
}

// writePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings. There is at most one
// writer per connection: this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel on disconnect.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				slog.Warn("write error", "remote", c.conn.RemoteAddr(), "error", err)
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
