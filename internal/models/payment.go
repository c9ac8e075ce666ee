package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the local record of one gateway order. ProjectCategory/ProjectID form a weak
// reference: nothing enforces that the project exists.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           *uint           `gorm:"index" json:"user_id"`
	ProjectCategory  string          `gorm:"size:20;index:idx_payments_project,priority:1" json:"project_category"`
	ProjectID        *uint           `gorm:"index:idx_payments_project,priority:2" json:"project_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	GatewayOrderID   string          `gorm:"size:100;not null;index" json:"gateway_order_id"`
	GatewayPaymentID *string         `gorm:"size:100" json:"gateway_payment_id"`
	GatewaySignature *string         `gorm:"size:255" json:"-"`
	Status           string          `gorm:"size:20;not null;default:'created';index" json:"status"` // created, paid, failed
	PaidAt           *time.Time      `json:"paid_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
