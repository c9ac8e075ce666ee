package models

import "time"

// WebhookEvent stores every signature-verified gateway delivery for auditing.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"size:20;not null;index" json:"provider"`
	EventID         string     `gorm:"size:100;index" json:"event_id"`
	EventType       string     `gorm:"size:100;index" json:"event_type"`
	Payload         string     `gorm:"type:text;not null" json:"payload"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
