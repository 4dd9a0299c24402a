package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/domain"
)

// WSHandler streams waiting-room status updates over a websocket, so a lobby
// can render participant counts without polling.
type WSHandler struct {
	log      *zap.Logger
	live     *app.LiveService
	upgrader websocket.Upgrader
}

func NewWSHandler(live *app.LiveService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		log:  log,
		live: live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type lobbyMessage struct {
	Type    string                `json:"type"`
	Payload domain.StatusSnapshot `json:"payload"`
}

// ServeLobby upgrades the request and forwards status snapshots until the
// client disconnects or the session ends.
func (h *WSHandler) ServeLobby(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	updates, cancel, err := h.live.SubscribeLobby(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer cancel()

	// reader goroutine only notices the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(lobbyMessage{Type: "status", Payload: snap}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
			if snap.Status == domain.StatusEnded {
				return
			}
		case <-done:
			return
		}
	}
}
