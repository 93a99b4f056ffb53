package models

import "time"

// LiveLocation is the single live-sharing session of a user in a conversation.
type LiveLocation struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	ConversationID string    `gorm:"primaryKey" json:"conversation_id"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	IsSharing      bool      `gorm:"not null;index" json:"is_sharing"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsLive is the only test consumers may use: a stale or stopped row is absent.
func (l LiveLocation) IsLive(now time.Time) bool {
	return l.IsSharing && now.Before(l.ExpiresAt)
}
