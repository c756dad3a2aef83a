package handler

import (
	"net/http"

	"hostelgrievance/backend/internal/notifyhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the token, not the origin, authenticates the stream
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request to the caller's
// notification stream.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	u := currentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error
		h.Log.WithError(err).WithField("user_id", u.ID).Warn("websocket upgrade failed")
		return
	}

	client := notifyhub.NewWebSocketClient(h.Hub, u.ID, conn)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
