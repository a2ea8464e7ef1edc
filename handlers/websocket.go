package handlers

import (
	"net/http"

	"users-service/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler serves the live feed of created users.
type WSHandler struct {
	mgr *ws.Manager
}

func NewWSHandler(mgr *ws.Manager) *WSHandler {
	return &WSHandler{mgr: mgr}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleUserFeed upgrades to websocket and keeps the subscriber registered
// until it disconnects. Incoming messages are ignored.
// GET /ws/users
func (h *WSHandler) HandleUserFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	clientID := h.mgr.Register(conn)
	log := logrus.WithField("client_id", clientID)
	log.Info("feed subscriber connected")

	defer func() {
		h.mgr.Unregister(clientID)
		log.Info("feed subscriber disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("feed read error")
			}
			return
		}
	}
}

// Subscribers handles GET /ws/users/subscribers
func (h *WSHandler) Subscribers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subscribers": h.mgr.List(), "count": h.mgr.Count()})
}
