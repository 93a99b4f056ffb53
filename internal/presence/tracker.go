// Package presence tracks advisory online flags per user and conversation.
// Records are last-write-wins and say nothing about message delivery.
package presence

import (
	"context"
	"log/slog"
	"time"

	"givebox/backend/internal/config"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"
)

type Store interface {
	UpsertPresence(ctx context.Context, p *models.Presence) error
	ListPresence(ctx context.Context, conversationID string) ([]models.Presence, error)
}

type Gate interface {
	Conversation(ctx context.Context, callerID, conversationID string) (*models.Conversation, error)
}

// PeerStatus is a presence record with staleness applied.
type PeerStatus struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

type Tracker struct {
	Store      Store
	Gate       Gate
	StaleAfter time.Duration
	Now        func() time.Time
}

func NewTracker(store Store, gate Gate, staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = config.DefaultPresenceStaleAfter
	}
	return &Tracker{
		Store:      store,
		Gate:       gate,
		StaleAfter: staleAfter,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetOnline upserts {is_online, last_seen=now} for userID. Failures are
// returned but callers are expected to log and move on: the next transition
// corrects the record.
func (t *Tracker) SetOnline(ctx context.Context, userID, conversationID string, online bool) error {
	if _, err := t.Gate.Conversation(ctx, userID, conversationID); err != nil {
		return err
	}
	rec := &models.Presence{
		UserID:         userID,
		ConversationID: conversationID,
		IsOnline:       online,
		LastSeen:       t.Now(),
	}
	if err := t.Store.UpsertPresence(ctx, rec); err != nil {
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			UserID:         logger.Ptr(userID),
			ConversationID: logger.Ptr(conversationID),
			Component:      "givebox.presence",
		})
		slog.WarnContext(ctx, "presence upsert failed", "online", online, "error", err)
		return err
	}
	return nil
}

// Peers returns the presence of everyone but callerID in the conversation.
func (t *Tracker) Peers(ctx context.Context, callerID, conversationID string) ([]PeerStatus, error) {
	if _, err := t.Gate.Conversation(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	rows, err := t.Store.ListPresence(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	now := t.Now()
	peers := make([]PeerStatus, 0, len(rows))
	for _, r := range rows {
		if r.UserID == callerID {
			continue
		}
		peers = append(peers, PeerStatus{UserID: r.UserID, Online: r.OnlineAt(now, t.StaleAfter), LastSeen: r.LastSeen})
	}
	return peers, nil
}
