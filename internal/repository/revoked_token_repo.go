package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

type RevokedTokenRepository struct {
	db *gorm.DB
}

func NewRevokedTokenRepository(db *gorm.DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

// Revoke records the token id. Revoking the same id twice is not an error.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, t *models.RevokedToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t).Error
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("token_id = ?", tokenID).Count(&n).Error
	return n > 0, err
}

// PurgeExpired drops entries whose tokens could no longer be used anyway.
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
