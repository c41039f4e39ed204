package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/shortage-app/hub"
	"github.com/yeremiapane/shortage-app/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin dibatasi oleh CORS middleware
	},
}

// WorkflowSocketHandler -> endpoint WebSocket per sesi. Client menerima
// broadcast perubahan item, keputusan, dan snapshot dari hub.
func WorkflowSocketHandler(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	role, ok := models.ParseRole(roleInterface.(string))
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	sessionID := c.Query("session")
	if sessionID == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	hub.RegisterClient(ws, role, sessionID)

	// Koneksi satu arah: hanya drain read sampai client menutup
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	hub.UnregisterClient(ws)
}
