package chathub

import "givebox/backend/internal/models"

type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
	ActionHeartbeat   Action = "heartbeat"
)

// ClientCommand is a frame sent by a client over the socket.
type ClientCommand struct {
	Action         Action `json:"action"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type FrameType string

const (
	FrameChange       FrameType = "change"
	FrameSubscribed   FrameType = "subscribed"
	FrameUnsubscribed FrameType = "unsubscribed"
	FrameError        FrameType = "error"
)

// ServerFrame is a frame sent to a client.
type ServerFrame struct {
	Type           FrameType      `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Change         *models.Change `json:"change,omitempty"`
	Error          string         `json:"error,omitempty"`
}
