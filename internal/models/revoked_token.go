package models

import "time"

// RevokedToken blacklists a refresh token by its jti until it would have expired anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenID   string    `gorm:"size:64;not null;uniqueIndex"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
