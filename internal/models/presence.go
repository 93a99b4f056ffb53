package models

import "time"

// Presence is the advisory online flag of one user inside one conversation.
type Presence struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	ConversationID string    `gorm:"primaryKey" json:"conversation_id"`
	IsOnline       bool      `gorm:"not null" json:"is_online"`
	LastSeen       time.Time `gorm:"not null" json:"last_seen"`
}

func (Presence) TableName() string { return "presence" }

// OnlineAt applies the staleness timeout: a record not refreshed within
// staleAfter is treated as offline whatever IsOnline says.
func (p Presence) OnlineAt(now time.Time, staleAfter time.Duration) bool {
	if !p.IsOnline {
		return false
	}
	return now.Sub(p.LastSeen) < staleAfter
}
