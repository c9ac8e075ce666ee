package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StubGateway creates orders locally for development. Signatures use the same scheme as the
// real gateway so clients can exercise the verify flow with PaymentSignature.
type StubGateway struct {
	Key    string
	Secret string
}

func (s *StubGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Order{
		ID:        "order_stub_" + uuid.NewString()[:14],
		Entity:    "order",
		Amount:    req.AmountMinor,
		AmountDue: req.AmountMinor,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
		CreatedAt: time.Now().Unix(),
	}, nil
}

func (s *StubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, s.Secret)
}

func (s *StubGateway) KeyID() string { return s.Key }
