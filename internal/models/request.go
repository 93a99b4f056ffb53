package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestDeclined  RequestStatus = "declined"
	RequestCompleted RequestStatus = "completed"
)

// Request is a user's request for a listing. Its ID doubles as the
// conversation ID once the request is accepted.
type Request struct {
	ID          string        `gorm:"primaryKey" json:"id"`
	ListingID   string        `gorm:"not null;index" json:"listing_id"`
	RequesterID string        `gorm:"not null;index" json:"requester_id"`
	Status      RequestStatus `gorm:"type:text;not null;default:pending" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Messages      []Message      `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Presence      []Presence     `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	LiveLocations []LiveLocation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// Conversation is derived from a request joined with its listing. It has no
// table of its own.
type Conversation struct {
	ID          string
	ListingID   string
	OwnerID     string
	RequesterID string
	Status      RequestStatus
}

// HasParticipant reports whether userID is the listing owner or the requester.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.OwnerID || userID == c.RequesterID)
}

// Peer returns the other participant, or "" if userID is not a participant.
func (c Conversation) Peer(userID string) string {
	switch userID {
	case c.OwnerID:
		return c.RequesterID
	case c.RequesterID:
		return c.OwnerID
	default:
		return ""
	}
}

// ChatEligible reports whether messages may be exchanged.
func (c Conversation) ChatEligible() bool {
	return c.Status == RequestAccepted
}
