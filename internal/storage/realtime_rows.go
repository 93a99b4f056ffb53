package storage

import (
	"context"
	"fmt"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var userConversationKey = []clause.Column{{Name: "user_id"}, {Name: "conversation_id"}}

// UpsertPresence writes p keyed by (user, conversation). Last write wins.
func (s *Service) UpsertPresence(ctx context.Context, p *models.Presence) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   userConversationKey,
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen"}),
	}).Create(p).Error
	if err != nil {
		return apperr.Upstream("upsert presence", err)
	}
	s.publish(ctx, models.TablePresence, models.OpUpdate, p.ConversationID, p)
	return nil
}

func (s *Service) ListPresence(ctx context.Context, conversationID string) ([]models.Presence, error) {
	var rows []models.Presence
	if err := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID).Find(&rows).Error; err != nil {
		return nil, apperr.Upstream("list presence", err)
	}
	return rows, nil
}

// UpsertLiveLocation starts (or replaces) the session keyed by (user, conversation).
func (s *Service) UpsertLiveLocation(ctx context.Context, loc *models.LiveLocation) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   userConversationKey,
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "is_sharing", "expires_at", "updated_at"}),
	}).Create(loc).Error
	if err != nil {
		return apperr.Upstream("upsert live location", err)
	}
	s.publish(ctx, models.TableLiveLocations, models.OpUpdate, loc.ConversationID, loc)
	return nil
}

// UpdateLiveLocationPosition moves an active session. expires_at is never
// touched. A stopped or expired session yields ErrNotFound.
func (s *Service) UpdateLiveLocationPosition(ctx context.Context, userID, conversationID string, lat, lng float64, now time.Time) (*models.LiveLocation, error) {
	var loc models.LiveLocation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LiveLocation{}).
			Where("user_id = ? AND conversation_id = ? AND is_sharing = ? AND expires_at > ?", userID, conversationID, true, now).
			Updates(map[string]any{"latitude": lat, "longitude": lng, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("live location session: %w", apperr.ErrNotFound)
		}
		return tx.Where("user_id = ? AND conversation_id = ?", userID, conversationID).Take(&loc).Error
	})
	if err != nil {
		return nil, apperr.Upstream("update live location", err)
	}
	s.publish(ctx, models.TableLiveLocations, models.OpUpdate, conversationID, &loc)
	return &loc, nil
}

// StopLiveLocation clears is_sharing. It reports false, with no error, when
// there was no active session.
func (s *Service) StopLiveLocation(ctx context.Context, userID, conversationID string) (bool, error) {
	var loc models.LiveLocation
	stopped := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LiveLocation{}).
			Where("user_id = ? AND conversation_id = ? AND is_sharing = ?", userID, conversationID, true).
			Updates(map[string]any{"is_sharing": false, "updated_at": s.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		stopped = true
		return tx.Where("user_id = ? AND conversation_id = ?", userID, conversationID).Take(&loc).Error
	})
	if err != nil {
		return false, apperr.Upstream("stop live location", err)
	}
	if stopped {
		s.publish(ctx, models.TableLiveLocations, models.OpUpdate, conversationID, &loc)
	}
	return stopped, nil
}

func (s *Service) ListLiveLocations(ctx context.Context, conversationID string) ([]models.LiveLocation, error) {
	var rows []models.LiveLocation
	if err := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID).Find(&rows).Error; err != nil {
		return nil, apperr.Upstream("list live locations", err)
	}
	return rows, nil
}

// ExpireLiveLocations clears is_sharing on sessions past expires_at.
// Observers never depend on it; it only hides stale markers sooner.
func (s *Service) ExpireLiveLocations(ctx context.Context, now time.Time) (int, error) {
	var expired []models.LiveLocation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_sharing = ? AND expires_at <= ?", true, now).Find(&expired).Error; err != nil {
			return err
		}
		for i := range expired {
			expired[i].IsSharing = false
			expired[i].UpdatedAt = now
			if err := tx.Model(&models.LiveLocation{}).
				Where("user_id = ? AND conversation_id = ?", expired[i].UserID, expired[i].ConversationID).
				Updates(map[string]any{"is_sharing": false, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Upstream("expire live locations", err)
	}
	for i := range expired {
		s.publish(ctx, models.TableLiveLocations, models.OpUpdate, expired[i].ConversationID, &expired[i])
	}
	return len(expired), nil
}
