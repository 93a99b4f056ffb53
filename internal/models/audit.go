package models

import "time"

// GateAudit records one authorization decision of the conversation gate.
type GateAudit struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CallerID      string     `gorm:"not null;index" json:"caller_id"`
	Variant       string     `gorm:"size:16;not null" json:"variant"`
	Requested     int        `json:"requested"`
	Authorized    int        `json:"authorized"`
	AuthorizedIDs StringList `json:"authorized_ids"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}
