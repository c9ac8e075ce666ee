package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

// PaymentNotifier is told about every status change of a payment.
type PaymentNotifier interface {
	PaymentUpdated(p *models.Payment)
}

type CreateOrderInput struct {
	Amount    decimal.Decimal
	Category  string
	ProjectID *uint
	UserID    uint // 0 for anonymous backers
}

type CreateOrderResult struct {
	Order     *payment.Order `json:"order"`
	Key       string         `json:"key"`
	PaymentID uint           `json:"payment_id"`
}

type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	// LocalPaymentID is the payment_id returned by CreateOrder; 0 when the client omits it.
	LocalPaymentID uint
}

type VerifyResult struct {
	Status  string `json:"status"`
	Updated bool   `json:"updated"`
}

// OrderService creates gateway orders and verifies checkout signatures.
type OrderService struct {
	cfg      config.PaymentConfig
	gateway  payment.Gateway
	payments *repository.PaymentRepository
	notifier PaymentNotifier
	audit    *Auditor
}

// NewOrderService builds the order manager. gateway may be nil when no credentials are
// configured; every operation then reports ErrServiceUnavailable.
func NewOrderService(cfg config.PaymentConfig, gateway payment.Gateway, payments *repository.PaymentRepository, notifier PaymentNotifier, audit *Auditor) *OrderService {
	return &OrderService{cfg: cfg, gateway: gateway, payments: payments, notifier: notifier, audit: audit}
}

func (s *OrderService) available() bool {
	return s.gateway != nil && s.cfg.GatewayConfigured()
}

// MinorUnits converts a decimal amount to integer minor units, truncating sub-unit digits.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Truncate(0).IntPart()
}

func receipt(category string, projectID *uint) string {
	id := ""
	if projectID != nil {
		id = strconv.FormatUint(uint64(*projectID), 10)
	}
	r := fmt.Sprintf("project_%s_%s", category, id)
	if len(r) > 40 {
		r = r[:40]
	}
	return r
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if !in.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	minor := MinorUnits(in.Amount)
	if minor < 1 {
		return nil, domain.ErrInvalidAmount
	}
	if !s.available() {
		return nil, domain.ErrServiceUnavailable
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if len(category) > 20 {
		verr := domain.NewValidationError()
		verr.Add("category", "Ensure this field has no more than 20 characters.")
		return nil, verr
	}

	currency := s.cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	order, err := s.gateway.CreateOrder(gctx, payment.OrderRequest{
		AmountMinor:    minor,
		Currency:       currency,
		Receipt:        receipt(category, in.ProjectID),
		PaymentCapture: true,
	})
	if err != nil {
		logger.Errorf("[payment] create order failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	p := &models.Payment{
		ProjectCategory: category,
		ProjectID:       in.ProjectID,
		Amount:          in.Amount.Round(2),
		Currency:        currency,
		GatewayOrderID:  order.ID,
		Status:          domain.PaymentStatusCreated,
	}
	if in.UserID != 0 {
		uid := in.UserID
		p.UserID = &uid
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store payment for order %s: %w", order.ID, err)
	}
	logger.Infof("[payment] order %s created for %s (payment %d)", order.ID, p.Amount.StringFixed(2), p.ID)
	return &CreateOrderResult{Order: order, Key: s.gateway.KeyID(), PaymentID: p.ID}, nil
}

// VerifyPayment checks the checkout signature for an order/payment pair and, when a local
// payment is referenced, moves it to paid or failed.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, domain.ErrMissingParameters
	}
	if !s.available() {
		return nil, domain.ErrServiceUnavailable
	}

	var local *models.Payment
	if in.LocalPaymentID != 0 {
		p, err := s.payments.GetByID(ctx, in.LocalPaymentID)
		switch {
		case err == nil:
			local = p
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, fmt.Errorf("load payment %d: %w", in.LocalPaymentID, err)
		}
	}

	if !s.gateway.VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature) {
		if local != nil {
			failed, err := s.payments.MarkFailed(ctx, local.ID, in.OrderID)
			if err != nil {
				logger.Errorf("[payment] mark %d failed: %v", local.ID, err)
			} else if failed {
				local.Status = domain.PaymentStatusFailed
				s.notify(local)
				s.audit.Record(ctx, 0, "payment.failed", "payment", strconv.FormatUint(uint64(local.ID), 10), map[string]interface{}{"order_id": in.OrderID})
			}
		}
		logger.Warnf("[payment] signature mismatch for order %s", in.OrderID)
		return nil, domain.ErrSignatureInvalid
	}

	if local == nil {
		return &VerifyResult{Status: "success", Updated: false}, nil
	}
	if local.GatewayOrderID != in.OrderID {
		logger.Warnf("[payment] payment %d belongs to order %s, not %s", local.ID, local.GatewayOrderID, in.OrderID)
		return nil, domain.ErrSignatureInvalid
	}

	// a failed payment is only promoted by the gateway's captured event
	sig := in.Signature
	moved, p, err := s.payments.MarkPaid(ctx, local.ID, repository.Capture{
		PaymentID: in.PaymentID,
		Signature: &sig,
		From:      []string{domain.PaymentStatusCreated},
	})
	if err != nil {
		return nil, fmt.Errorf("mark payment %d paid: %w", local.ID, err)
	}
	if moved {
		logger.Infof("[payment] payment %d paid via checkout (%s)", p.ID, in.PaymentID)
		s.notify(p)
		s.audit.Record(ctx, 0, "payment.paid", "payment", strconv.FormatUint(uint64(p.ID), 10), map[string]interface{}{"source": "verify"})
	}
	return &VerifyResult{Status: "success", Updated: moved}, nil
}

func (s *OrderService) notify(p *models.Payment) {
	if s.notifier != nil {
		s.notifier.PaymentUpdated(p)
	}
}

// GetPayment is used by the status stream to send the current state.
func (s *OrderService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}
