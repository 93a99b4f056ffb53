package models

import (
	"time"

	"givebox/backend/internal/id"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText         MessageType = "text"
	MessageImage        MessageType = "image"
	MessageLocation     MessageType = "location"
	MessageLiveLocation MessageType = "live_location"
)

// Message is one entry of a conversation log. ID is a snowflake so that
// (CreatedAt, ID) gives a total order within a conversation.
type Message struct {
	ID             int64          `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	ConversationID string         `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string         `gorm:"not null" json:"sender_id"`
	Type           MessageType    `gorm:"column:message_type;type:text;not null" json:"message_type"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	MediaRef       *string        `gorm:"type:text" json:"media_ref,omitempty"`
	LocationData   datatypes.JSON `json:"location_data,omitempty"`
	IsRead         bool           `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time      `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == 0 {
		m.ID = id.New()
	}
	return
}

// Before reports whether m sorts strictly before o in conversation order.
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}
