package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rollcall/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cookie-authenticated; cross-origin scripts cannot read the socket.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WatchSession upgrades to a WebSocket streaming live check-ins for a QR
// session. Only the owning lecturer may watch.
func (h *Handler) WatchSession(c *gin.Context) {
	claims, _ := auth.CallerFrom(c)
	qrSessionID := c.Param("id")

	if _, err := h.attRepo.QrSessionOwned(c.Request.Context(), qrSessionID, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(qrSessionID, conn)
}
