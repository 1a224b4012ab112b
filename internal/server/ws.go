package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerled/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = time.Second

// CountHandler pushes a snapshot to WebSocket clients whenever the finger
// count or the transmitted value changes.
type CountHandler struct {
	board *telemetry.Board
	log   logrus.FieldLogger
}

// NewCountHandler creates a new CountHandler watching board.
func NewCountHandler(board *telemetry.Board, log logrus.FieldLogger) *CountHandler {
	return &CountHandler{board: board, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	updates, cancel := h.board.Watch()
	defer cancel()

	// Detect client disconnects; clients never send anything we act on.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, h.board.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(conn, snap); err != nil {
				return
			}
		}
	}
}

func (h *CountHandler) send(conn *websocket.Conn, snap telemetry.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
