package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an in-app notification for one recipient.
type Notification struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"not null;index" json:"user_id"`
	Title            string    `gorm:"type:text;not null" json:"title"`
	Body             string    `gorm:"type:text;not null" json:"body"`
	Type             string    `gorm:"size:40;index" json:"type"`
	RelatedListingID *string   `json:"related_listing_id,omitempty"`
	RelatedRequestID *string   `json:"related_request_id,omitempty"`
	IsRead           bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// NotificationPreference holds per-recipient push settings. A missing row
// means push enabled with nothing muted.
type NotificationPreference struct {
	UserID      string     `gorm:"primaryKey" json:"user_id"`
	PushEnabled bool       `gorm:"not null" json:"push_enabled"`
	MutedTypes  StringList `json:"muted_types"`
}

// DefaultPreference is the preference of a user who never saved one.
func DefaultPreference(userID string) NotificationPreference {
	return NotificationPreference{UserID: userID, PushEnabled: true}
}

// AllowsPush reports whether a push of the given type may reach the user.
func (p NotificationPreference) AllowsPush(notificationType string) bool {
	if !p.PushEnabled {
		return false
	}
	for _, t := range p.MutedTypes {
		if t == notificationType {
			return false
		}
	}
	return true
}
