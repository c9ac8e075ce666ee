package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

// Client is one websocket connection watching a payment.
type Client struct {
	PaymentID uint
	UserID    uint
	Send      chan []byte
	Hub       *Hub
	mu        sync.Mutex
	closed    bool
}

func NewClient(paymentID, userID uint) *Client {
	return &Client{PaymentID: paymentID, UserID: userID, Send: make(chan []byte, 16)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	close(c.Send)
}

// Hub fans payment status changes out to the clients watching each payment.
type Hub struct {
	mu        sync.RWMutex
	byPayment map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byPayment: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byPayment[c.PaymentID] == nil {
		h.byPayment[c.PaymentID] = make(map[*Client]struct{})
	}
	h.byPayment[c.PaymentID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byPayment[c.PaymentID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byPayment, c.PaymentID)
		}
	}
}

// StatusMessage is what watchers receive, both on connect and on every change.
type StatusMessage struct {
	Type             string     `json:"type"`
	PaymentID        uint       `json:"payment_id"`
	Status           string     `json:"status"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	GatewayOrderID   string     `json:"gateway_order_id"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func NewStatusMessage(p *models.Payment) StatusMessage {
	return StatusMessage{
		Type:             "payment_status",
		PaymentID:        p.ID,
		Status:           p.Status,
		Amount:           p.Amount.StringFixed(2),
		Currency:         p.Currency,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		PaidAt:           p.PaidAt,
	}
}

// PaymentUpdated pushes the new state to every watcher of p. Slow clients drop messages.
func (h *Hub) PaymentUpdated(p *models.Payment) {
	data, _ := json.Marshal(NewStatusMessage(p))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byPayment[p.ID] {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) WatcherCount(paymentID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byPayment[paymentID])
}
