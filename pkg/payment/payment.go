package payment

import (
	"context"
	"errors"
)

// OrderRequest is a gateway order in minor currency units (paise for INR).
type OrderRequest struct {
	AmountMinor    int64
	Currency       string
	Receipt        string
	PaymentCapture bool
	Notes          map[string]string
}

// Order is the gateway's view of an order, returned to the checkout client as is.
type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes,omitempty"`
	CreatedAt  int64             `json:"created_at"`
}

// Gateway creates remote orders and verifies checkout signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// KeyID is the publishable key handed to checkout clients.
	KeyID() string
}

// ErrGateway wraps every failure talking to the remote gateway.
var ErrGateway = errors.New("payment gateway error")
