package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	"gorm.io/gorm"
)

// CreateMessage inserts msg and announces it on the conversation feed.
func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return apperr.Upstream("insert message", err)
	}
	s.publish(ctx, models.TableMessages, models.OpInsert, msg.ConversationID, msg)
	return nil
}

// ListMessages returns the newest limit messages older than the message
// before (0 for the newest overall), in (created_at, id) order. A limit of 0
// returns everything.
func (s *Service) ListMessages(ctx context.Context, conversationID string, limit int, before int64) ([]models.Message, error) {
	db := s.DB.WithContext(ctx)
	q := db.Where("conversation_id = ?", conversationID)
	if before != 0 {
		var cursor models.Message
		err := db.Select("id").Where("conversation_id = ? AND id = ?", conversationID, before).Take(&cursor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("message %d: %w", before, apperr.ErrNotFound)
		}
		if err != nil {
			return nil, apperr.Upstream("load message cursor", err)
		}
		at := db.Model(&models.Message{}).Select("created_at").Where("id = ?", before)
		q = q.Where("(created_at < (?) OR (created_at = (?) AND id < ?))", at, at, before)
	}
	q = q.Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, apperr.Upstream("list messages", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// MarkMessagesRead flips is_read on every unread message not sent by readerID
// and announces each updated row. Already-read rows are untouched.
func (s *Service) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	var updated []models.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&models.Message{}).Where("id IN ?", ids).Update("is_read", true).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Order("created_at asc").Order("id asc").Find(&updated).Error
	})
	if err != nil {
		return 0, apperr.Upstream("mark messages read", err)
	}

	for i := range updated {
		s.publish(ctx, models.TableMessages, models.OpUpdate, conversationID, &updated[i])
	}
	return int64(len(updated)), nil
}
