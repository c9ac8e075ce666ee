package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/auth"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PaymentLookup loads the current state of a payment.
type PaymentLookup interface {
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
}

// ServePaymentStatus streams status changes of /ws/payments/:id. Payments created by a signed-in
// user can only be watched with that user's token (?token=...).
func ServePaymentStatus(cfg *config.JWTConfig, hub *Hub, payments PaymentLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id", "code": "VALIDATION_ERROR"})
			return
		}
		p, err := payments.GetPayment(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "payment not found", "code": "NOT_FOUND"})
				return
			}
			logger.Errorf("[ws] load payment %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
			return
		}

		var userID uint
		if token := c.Query("token"); token != "" {
			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
				return
			}
			userID = claims.UserID
		}
		if p.UserID != nil && *p.UserID != userID {
			status := http.StatusForbidden
			if userID == 0 {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": "not allowed to watch this payment", "code": "FORBIDDEN"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(p.ID, userID)
		hub.Register(client)
		defer client.Close()
		data, _ := json.Marshal(NewStatusMessage(p))
		client.Send <- data

		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames until the connection closes.
func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
