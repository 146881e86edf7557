package handler

import (
	"net/http"

	"tinypot-server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is handled by the gateway in front of this
		// service.
		return true
	},
}

// serveWs authenticates the player by the 'token' query parameter and
// upgrades the connection. Browsers cannot set an Authorization header on
// a WebSocket handshake.
func (h *PlayHandler) serveWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		h.logger.Warn("Missing 'token' query parameter on WebSocket handshake")
		c.String(http.StatusUnauthorized, "Unauthorized: Missing token")
		return
	}

	claims, err := h.verifier.VerifyToken(c.Request.Context(), tokenString)
	if err != nil {
		h.logger.Warn("WebSocket token verification failed", zap.Error(err))
		c.String(http.StatusUnauthorized, "Unauthorized: Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the handshake error response.
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	playerID := claims.UserID.String()
	client := ws.NewClient(playerID, conn, h.manager, h.logger)
	h.manager.RegisterClient(client)
	h.logger.Info("WebSocket client connected", zap.String("playerID", playerID))
}
