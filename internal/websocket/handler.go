package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/petpals/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams that user's
// events to it. An empty origins list accepts any origin.
func HandleWebSocket(hub *Hub, origins []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		opts := &ws.AcceptOptions{OriginPatterns: origins}
		if len(origins) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "user_id", userID, "error", err)
			return
		}

		NewClient(hub, conn, userID).Run(r.Context())
	}
}
