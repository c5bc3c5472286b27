package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/quicktalk/quicktalk/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,

	// The coordinator is origin-agnostic: room ids are the only
	// admission control.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// ServeWs returns the websocket upgrade handler bound to hub.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "error", err)
			return
		}

		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan *signaling.Message, 256),
		}

		client.hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// NewServeMux wires the coordinator's HTTP surface: the websocket
// endpoint and a health check.
func NewServeMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/ws", ServeWs(hub))
	return mux
}
