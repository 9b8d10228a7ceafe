package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/gavel/internal/auth"
)

// HandleWebSocket upgrades the request and serves it as a hub client.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // household LAN, devices open the page by IP
		})
		if err != nil {
			hub.logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		role, _ := auth.RoleFrom(r.Context())
		NewClient(hub, conn, role).Run(r.Context())
	}
}
