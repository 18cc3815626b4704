package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

// WSHandler streams a session's notifications over a websocket. The session
// ID comes from the `session` query parameter.
type WSHandler struct {
	bus *Bus
}

// NewWSHandler creates a websocket handler over the given bus.
func NewWSHandler(bus *Bus) *WSHandler {
	return &WSHandler{bus: bus}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch, cancel := h.bus.Subscribe(sessionID)
	defer cancel()

	ctx := r.Context()
	slog.Debug("notification stream opened", "session_id", sessionID)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case n, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, n)
			cancelWrite()
			if err != nil {
				slog.Debug("notification stream closed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}
