package models

import (
	"encoding/json"
	"time"
)

const (
	TableMessages      = "messages"
	TablePresence      = "presence"
	TableLiveLocations = "live_locations"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Change is one row-change notification. Delivery is at-least-once, so
// consumers must tolerate duplicates.
type Change struct {
	Table          string          `json:"table"`
	Op             ChangeOp        `json:"op"`
	ConversationID string          `json:"conversation_id"`
	Record         json.RawMessage `json:"record"`
	CommitTime     time.Time       `json:"commit_time"`
}

// NewChange marshals record into a Change.
func NewChange(table string, op ChangeOp, conversationID string, record any, at time.Time) (Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Change{}, err
	}
	return Change{
		Table:          table,
		Op:             op,
		ConversationID: conversationID,
		Record:         raw,
		CommitTime:     at,
	}, nil
}

// AllModels lists every table the service migrates.
func AllModels() []any {
	return []any{
		&Listing{},
		&Request{},
		&Message{},
		&Presence{},
		&LiveLocation{},
		&Notification{},
		&NotificationPreference{},
		&PushRegistration{},
		&GateAudit{},
	}
}
