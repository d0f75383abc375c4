package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/familypoints/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and joins the caller's
// family channel.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok || ac.FamilyID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		logger.Debug("websocket connected", "user_id", ac.UserID, "role", ac.Role)
		NewClient(hub, conn, ac).Run(r.Context())
	}
}
