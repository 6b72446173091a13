package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chatsync/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// RegisterStream registers the live snapshot websocket endpoint.
func RegisterStream(r *mux.Router, d Deps) {
	h := &streamHandlers{d: d}
	r.HandleFunc("/chats/{id}/stream", h.stream).Methods(http.MethodGet)
}

type streamHandlers struct {
	d Deps
}

// stream upgrades to a websocket and forwards every published snapshot of
// the conversation until the client disconnects.
func (h *streamHandlers) stream(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws_upgrade_failed", "chat", chatID, "error", err)
		return
	}
	snapshots, cancel := h.d.Hub.Subscribe(chatID)
	defer cancel()
	logger.Info("stream_opened", "chat", chatID, "remote", r.RemoteAddr)

	// reader: consume control frames, detect disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()
	for {
		select {
		case <-done:
			logger.Info("stream_closed", "chat", chatID)
			return
		case snap, ok := <-snapshots:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Warn("stream_write_failed", "chat", chatID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
