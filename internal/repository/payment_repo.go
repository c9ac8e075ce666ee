package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByOrderID returns every local payment created for a gateway order.
func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]models.Payment, error) {
	var out []models.Payment
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).Order("id").Find(&out).Error
	return out, err
}

// Capture describes a transition into paid. Signature and Amount are optional; a nil Amount
// keeps the amount recorded at order creation. From restricts the source statuses; empty
// means any status other than paid.
type Capture struct {
	PaymentID string
	Signature *string
	Amount    *decimal.Decimal
	From      []string
}

// MarkPaid moves a payment that is not yet paid into paid and credits its project, both in one
// transaction. The returned flag is false when the row was already paid (or missing), in which
// case nothing was written.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id uint, c Capture) (bool, *models.Payment, error) {
	var (
		moved bool
		out   models.Payment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		fields := map[string]interface{}{
			"status":             domain.PaymentStatusPaid,
			"gateway_payment_id": c.PaymentID,
			"paid_at":            now,
		}
		if c.Signature != nil {
			fields["gateway_signature"] = *c.Signature
		}
		if c.Amount != nil {
			fields["amount"] = *c.Amount
		}
		q := tx.Model(&models.Payment{}).Where("id = ? AND status <> ?", id, domain.PaymentStatusPaid)
		if len(c.From) > 0 {
			q = q.Where("status IN ?", c.From)
		}
		res := q.Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.First(&out, id).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return nil
		}
		moved = true
		return creditProject(tx, out.ProjectCategory, out.ProjectID, out.Amount)
	})
	if err != nil {
		return false, nil, err
	}
	return moved, &out, nil
}

// MarkFailed fails a payment that belongs to orderID and is still created.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uint, orderID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND gateway_order_id = ? AND status = ?", id, orderID, domain.PaymentStatusCreated).
		Update("status", domain.PaymentStatusFailed)
	return res.RowsAffected == 1, res.Error
}
