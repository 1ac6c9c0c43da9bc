package ws

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
)

// GET /api/ws?transcriptionId=
// Subscribes the socket to optimization progress of one transcription.
// The server only pushes; inbound frames are read and discarded until close.
func WSHandler(hub *Hub, log *logger.ZapLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("transcriptionId")
		if roomID == "" {
			http.Error(w, "missing transcriptionId", http.StatusBadRequest)
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Log(logger.LogEntry{Level: "warn", Message: "ws upgrade failed", Error: err})
			return
		}

		hub.Register(roomID, conn)
		defer hub.Unregister(roomID, conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
