package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub fans optimization events out to sockets subscribed to a transcription id.
type Hub struct {
	mu        sync.Mutex
	rooms     map[string]map[*websocket.Conn]bool
	log       *logger.ZapLogger
	writeWait time.Duration
}

func NewHub(log *logger.ZapLogger) *Hub {
	return &Hub{
		rooms:     make(map[string]map[*websocket.Conn]bool),
		log:       log,
		writeWait: writeWait,
	}
}

func (h *Hub) Register(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true

	h.log.Log(logger.LogEntry{
		Level:   "debug",
		Message: "ws register",
		Fields:  map[string]any{"room": roomID, "conns": len(h.rooms[roomID])},
	})
}

func (h *Hub) Unregister(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(roomID, conn)
}

func (h *Hub) unregisterLocked(roomID string, conn *websocket.Conn) {
	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}

	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		conn.Close()
	}
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// Conns reports the number of sockets in a room.
func (h *Hub) Conns(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// SendToRoom writes msg to every socket in the room; broken or stalled
// sockets are dropped. Writes happen under the hub lock, so each connection
// has one writer at a time, and every write is bounded by writeWait.
func (h *Hub) SendToRoom(roomID string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.rooms[roomID] {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "ws send failed",
				Fields:  map[string]any{"room": roomID},
				Error:   err,
			})
			h.unregisterLocked(roomID, conn)
		}
	}
}

type wsEvent struct {
	Type            string `json:"type"`
	TranscriptionID string `json:"transcriptionId"`
	Platform        string `json:"platform,omitempty"`
	Success         bool   `json:"success"`
	Text            string `json:"text,omitempty"`
}

// Broadcast drains events into their transcription rooms until ctx ends
// or the channel closes.
func (h *Hub) Broadcast(ctx context.Context, events <-chan ports.OptimizationEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			msg := wsEvent{
				Type:            "platform",
				TranscriptionID: ev.TranscriptionID,
				Platform:        string(ev.Platform),
				Success:         ev.Success,
				Text:            ev.Text,
			}
			if ev.Done {
				msg.Type = "done"
			}

			payload, err := json.Marshal(msg)
			if err != nil {
				h.log.Log(logger.LogEntry{Level: "error", Message: "ws marshal failed", Error: err})
				continue
			}
			h.SendToRoom(ev.TranscriptionID, payload)
		}
	}
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
