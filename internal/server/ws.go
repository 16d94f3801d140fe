package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler registers WebSocket clients with the hub, which pushes
// every detection result to them.
type LandmarksHandler struct {
	hub *Hub
}

// NewLandmarksHandler creates a new LandmarksHandler for hub.
func NewLandmarksHandler(hub *Hub) *LandmarksHandler {
	return &LandmarksHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.hub.add(conn)
	defer h.hub.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
