package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty: use err.Error()
}

var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"},
	{domain.ErrInvalidCategory, http.StatusBadRequest, "INVALID_CATEGORY", ""},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be greater than 0"},
	{domain.ErrMissingParameters, http.StatusBadRequest, "MISSING_PARAMETERS", "missing parameters"},
	{domain.ErrSignatureInvalid, http.StatusBadRequest, "SIGNATURE_INVALID", "signature verification failed"},
	{domain.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE", "invalid signature"},
	{domain.ErrMalformedPayload, http.StatusBadRequest, "MALFORMED_PAYLOAD", "malformed payload"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", ""},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "you are not allowed to modify this project"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "not found"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT", ""},
	{domain.ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "payment service unavailable"},
	{domain.ErrGateway, http.StatusInternalServerError, "GATEWAY_ERROR", "failed to create order"},
	{domain.ErrConfig, http.StatusInternalServerError, "CONFIG_ERROR", "webhook secret not configured"},
	{domain.ErrMediaUpload, http.StatusBadGateway, "MEDIA_UPLOAD_FAILED", "media upload failed"},
}

// respondError maps service errors to {"error", "code", "details"} responses. Anything unknown
// is logged and reported as an opaque 500.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "VALIDATION_ERROR", "details": verr.Fields})
		return
	}
	if errors.Is(err, service.ErrInvalidCreds) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password", "code": "UNAUTHORIZED"})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			if m.status >= http.StatusInternalServerError {
				logger.Errorf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
			}
			c.JSON(m.status, gin.H{"error": msg, "code": m.code})
			return
		}
	}
	logger.Errorf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL_ERROR"})
}

func badRequest(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "VALIDATION_ERROR", "details": map[string][]string{field: {msg}}})
}
