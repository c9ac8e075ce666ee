package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string           `json:"id"`
				OrderID string           `json:"order_id"`
				Amount  *decimal.Decimal `json:"amount"` // minor units
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type WebhookResult struct {
	Event   string `json:"event"`
	Updated int    `json:"updated"`
}

// WebhookService reconciles payments from signed gateway events.
type WebhookService struct {
	secret   string
	payments *repository.PaymentRepository
	events   *repository.WebhookEventRepository
	notifier PaymentNotifier
	audit    *Auditor
}

func NewWebhookService(webhookSecret string, payments *repository.PaymentRepository, events *repository.WebhookEventRepository, notifier PaymentNotifier, audit *Auditor) *WebhookService {
	return &WebhookService{secret: webhookSecret, payments: payments, events: events, notifier: notifier, audit: audit}
}

// HandleWebhook verifies and applies one delivery. Only configuration, signature and payload
// shape problems are returned; once those pass, processing problems are logged and the
// delivery is acknowledged so the gateway does not retry forever.
func (s *WebhookService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error) {
	if s.secret == "" {
		logger.Errorf("[webhook] webhook secret not configured")
		return nil, domain.ErrConfig
	}
	if !payment.VerifyWebhookSignature(body, signature, s.secret) {
		logger.Warnf("[webhook] invalid signature (event %q)", eventID)
		return nil, domain.ErrInvalidSignature
	}

	var env webhookEnvelope
	parseErr := json.Unmarshal(body, &env)

	ev := &models.WebhookEvent{
		Provider:  domain.ProviderRazorpay,
		EventID:   eventID,
		EventType: env.Event,
		Payload:   string(body),
	}
	if err := s.events.Create(ctx, ev); err != nil {
		logger.Errorf("[webhook] record event %q: %v", eventID, err)
		ev = nil
	}

	if parseErr != nil {
		s.finish(ctx, ev, parseErr)
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, parseErr)
	}

	res := &WebhookResult{Event: env.Event}
	var procErr error
	switch env.Event {
	case domain.WebhookEventPaymentCaptured:
		res.Updated, procErr = s.captured(ctx, env)
		if procErr != nil {
			logger.Errorf("[webhook] %s: %v", env.Event, procErr)
		}
	default:
		logger.Debugf("[webhook] ignoring event %q", env.Event)
	}
	s.finish(ctx, ev, procErr)
	return res, nil
}

func (s *WebhookService) finish(ctx context.Context, ev *models.WebhookEvent, procErr error) {
	if ev == nil {
		return
	}
	if err := s.events.MarkProcessed(ctx, ev.ID, procErr); err != nil {
		logger.Warnf("[webhook] mark event %d processed: %v", ev.ID, err)
	}
}

// captured marks every not-yet-paid payment of the order as paid with the captured payment id
// and amount. Re-deliveries find nothing to move.
func (s *WebhookService) captured(ctx context.Context, env webhookEnvelope) (int, error) {
	entity := env.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		return 0, errors.New("captured event without order or payment id")
	}
	var amount *decimal.Decimal
	if entity.Amount != nil {
		a := entity.Amount.Div(decimal.NewFromInt(100))
		amount = &a
	}

	rows, err := s.payments.ListByOrderID(ctx, entity.OrderID)
	if err != nil {
		return 0, fmt.Errorf("load payments for order %s: %w", entity.OrderID, err)
	}
	if len(rows) == 0 {
		logger.Warnf("[webhook] no local payment for order %s", entity.OrderID)
	}

	updated := 0
	var firstErr error
	for _, row := range rows {
		if row.Status == domain.PaymentStatusPaid {
			continue
		}
		moved, p, err := s.payments.MarkPaid(ctx, row.ID, repository.Capture{PaymentID: entity.ID, Amount: amount})
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("mark payment %d paid: %w", row.ID, err)
			}
			continue
		}
		if !moved {
			continue
		}
		updated++
		logger.Infof("[webhook] payment %d paid via webhook (%s)", p.ID, entity.ID)
		if s.notifier != nil {
			s.notifier.PaymentUpdated(p)
		}
		s.audit.Record(ctx, 0, "payment.paid", "payment", strconv.FormatUint(uint64(p.ID), 10), map[string]interface{}{"source": "webhook", "order_id": entity.OrderID})
	}
	return updated, firstErr
}
