package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

const maxWebhookBody = 1 << 20

type PaymentWebhookHandler struct {
	svc *service.WebhookService
}

func NewPaymentWebhookHandler(svc *service.WebhookService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{svc: svc}
}

// Handle verifies X-Razorpay-Signature over the raw body before anything is parsed.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warnf("[webhook] body larger than %d bytes rejected", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large", "code": "PAYLOAD_TOO_LARGE"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "code": "MALFORMED_PAYLOAD"})
		return
	}
	_, err = h.svc.HandleWebhook(requestContext(c), body, c.GetHeader("X-Razorpay-Signature"), c.GetHeader("X-Razorpay-Event-Id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
