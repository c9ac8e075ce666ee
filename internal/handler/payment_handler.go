package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/middleware"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

type PaymentHandler struct {
	orders *service.OrderService
}

func NewPaymentHandler(orders *service.OrderService) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

type CreateOrderRequest struct {
	Amount    json.RawMessage `json:"amount"`
	Category  string          `json:"category"`
	ProjectID interface{}     `json:"project_id"`
}

type VerifyRequest struct {
	OrderID   string      `json:"razorpay_order_id"`
	PaymentID string      `json:"razorpay_payment_id"`
	Signature string      `json:"razorpay_signature"`
	LocalID   interface{} `json:"payment_id"`
}

// parseAmount accepts a JSON number or a numeric string. Anything unparseable becomes zero,
// which the order service rejects as an invalid amount.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", "invalid JSON body")
		return
	}
	res, err := h.orders.CreateOrder(requestContext(c), service.CreateOrderInput{
		Amount:    parseAmount(req.Amount),
		Category:  req.Category,
		ProjectID: looseUint(req.ProjectID),
		UserID:    middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", "invalid JSON body")
		return
	}
	in := service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	}
	if id := looseUint(req.LocalID); id != nil {
		in.LocalPaymentID = *id
	}
	res, err := h.orders.VerifyPayment(requestContext(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified",
		"status":  res.Status,
		"updated": res.Updated,
		"payment": looseUint(req.LocalID),
	})
}
