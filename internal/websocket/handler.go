package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/sentinelapp/sentinel/internal/auth"
)

// Handler upgrades an authenticated request to a WebSocket and runs it as a
// hub client for the request's user.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err)
			return
		}

		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
	}
}
