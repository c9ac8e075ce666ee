package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(message []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(message, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentSignature is the checkout signature for an order/payment pair.
func PaymentSignature(orderID, paymentID, secret string) string {
	return Sign([]byte(orderID+"|"+paymentID), secret)
}

// VerifyPaymentSignature checks a checkout signature in constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	return verify([]byte(orderID+"|"+paymentID), signature, secret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return verify(body, signature, secret)
}
