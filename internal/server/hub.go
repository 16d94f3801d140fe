package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/landmark"
)

// Hub holds the latest annotated preview frame and fans detection results
// out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	frame   []byte
	seq     uint64
	clients map[*websocket.Conn]*sync.Mutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// PublishFrame encodes frame as JPEG and makes it the current preview frame.
func (h *Hub) PublishFrame(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	h.mu.Lock()
	h.frame = data
	h.seq++
	h.mu.Unlock()
	return nil
}

// LatestFrame returns the current JPEG frame and its sequence number.
// The sequence number is zero until a frame is published.
func (h *Hub) LatestFrame() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame, h.seq
}

// landmarksMessage is the JSON payload sent to WebSocket clients.
type landmarksMessage struct {
	*landmark.Result
	Timestamp int64 `json:"timestamp"`
}

// PublishResult sends result to every connected client. Clients that fail
// to receive it are dropped.
func (h *Hub) PublishResult(result *landmark.Result) {
	if result == nil {
		result = &landmark.Result{}
	}
	msg, err := json.Marshal(landmarksMessage{Result: result, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		slog.Warn("encode landmarks", "err", err)
		return
	}

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn, writeMu := range h.clients {
		writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, msg)
		writeMu.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
		conn.Close()
	}
}

// Clients returns the number of connected WebSocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
