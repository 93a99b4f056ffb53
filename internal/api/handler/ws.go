package handler

import (
	"log/slog"
	"net/http"

	"givebox/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin may connect; the bearer token authenticates the socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request and hands the socket to
// the hub. Subscriptions are requested by the client over the socket.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := callerID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := chathub.NewWebSocketClient(userID, conn, h.Hub)
	h.Hub.Register(client)
	client.Run()
}
