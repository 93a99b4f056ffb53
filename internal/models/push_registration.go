package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PushChannel string

const (
	PushWeb      PushChannel = "webpush"
	PushTelegram PushChannel = "telegram"
)

// PushRegistration is a device endpoint able to receive push deliveries.
// For web push Endpoint is the subscription URL; for telegram it is the chat ID.
type PushRegistration struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	UserID    string      `gorm:"not null;index" json:"user_id"`
	Channel   PushChannel `gorm:"type:text;not null" json:"channel"`
	Endpoint  string      `gorm:"type:text;not null;uniqueIndex" json:"endpoint"`
	P256dh    string      `gorm:"type:text" json:"-"`
	Auth      string      `gorm:"type:text" json:"-"`
	CreatedAt time.Time   `json:"created_at"`
}

func (r *PushRegistration) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
