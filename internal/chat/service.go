// Package chat is the per-conversation message log.
package chat

import (
	"context"
	"log/slog"
	"time"

	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"
	"givebox/backend/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

type Store interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int, before int64) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// Gate resolves a conversation for a chat action.
type Gate interface {
	Conversation(ctx context.Context, callerID, conversationID string) (*models.Conversation, error)
}

type Service struct {
	Store Store
	Gate  Gate
	Feed  chathub.Feed
	Now   func() time.Time
}

func NewService(store Store, gate Gate, feed chathub.Feed) *Service {
	return &Service{
		Store: store,
		Gate:  gate,
		Feed:  feed,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Send appends a message. The sender must be a participant of an accepted
// conversation. A failed send is returned as is and never retried here.
func (s *Service) Send(ctx context.Context, conversationID, senderID string, p Payload) (*models.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "chat.Send")
	defer span.End()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:         logger.Ptr(senderID),
		ConversationID: logger.Ptr(conversationID),
		Component:      "givebox.chat",
	})

	if p == nil {
		return nil, errMissingPayload
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if _, err := s.Gate.Conversation(ctx, senderID, conversationID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           p.Kind(),
		CreatedAt:      s.Now(),
	}
	if err := p.apply(msg); err != nil {
		return nil, err
	}
	if err := s.Store.CreateMessage(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "send message failed", "type", msg.Type, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("message.type", string(msg.Type)))
	return msg, nil
}

// List returns the newest messages older than before (0 for the newest
// overall) in (created_at, id) order. Pages hold at most DefaultMessageLimit
// messages; callers page back with the ID of the first message they hold.
func (s *Service) List(ctx context.Context, callerID, conversationID string, limit int, before int64) ([]models.Message, error) {
	if _, err := s.Gate.Conversation(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > config.DefaultMessageLimit {
		limit = config.DefaultMessageLimit
	}
	return s.Store.ListMessages(ctx, conversationID, limit, before)
}

// MarkRead marks every message not sent by readerID as read.
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	if _, err := s.Gate.Conversation(ctx, readerID, conversationID); err != nil {
		return 0, err
	}
	return s.Store.MarkMessagesRead(ctx, conversationID, readerID)
}

// Subscribe follows inserts and updates of the conversation's messages. The
// caller owns the handle and must Close it.
func (s *Service) Subscribe(ctx context.Context, callerID, conversationID string) (*chathub.Subscription, error) {
	if _, err := s.Gate.Conversation(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	return s.Feed.Subscribe(ctx, chathub.Topic(models.TableMessages, conversationID))
}
