package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, ev *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// MarkProcessed stamps processed_at and records the processing error, if any.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uint, procErr error) error {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed_at": time.Now(), "processing_error": msg}).Error
}

func (r *WebhookEventRepository) List(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
