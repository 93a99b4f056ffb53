package storage

import (
	"context"
	"errors"
	"fmt"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return apperr.Upstream("insert notification", err)
	}
	return nil
}

// ListNotifications returns the newest notifications for userID first.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Upstream("list notifications", err)
	}
	return rows, nil
}

// MarkNotificationRead marks one of userID's notifications read. Another
// user's notification is reported as not found.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	var n models.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("notification %s: %w", notificationID, apperr.ErrNotFound)
	}
	if err != nil {
		return apperr.Upstream("get notification", err)
	}
	if n.IsRead {
		return nil
	}
	if err := s.DB.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
		return apperr.Upstream("mark notification read", err)
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperr.Upstream("mark all notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

// GetPreferences returns a preference for every requested user, filling in
// the defaults for users who never saved one.
func (s *Service) GetPreferences(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error) {
	prefs := make(map[string]models.NotificationPreference, len(userIDs))
	if len(userIDs) == 0 {
		return prefs, nil
	}
	var rows []models.NotificationPreference
	if err := s.DB.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, apperr.Upstream("get preferences", err)
	}
	for _, id := range userIDs {
		prefs[id] = models.DefaultPreference(id)
	}
	for _, p := range rows {
		prefs[p.UserID] = p
	}
	return prefs, nil
}

// SavePreference replaces userID's notification preference.
func (s *Service) SavePreference(ctx context.Context, pref *models.NotificationPreference) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_enabled", "muted_types"}),
	}).Create(pref).Error
	if err != nil {
		return apperr.Upstream("save preference", err)
	}
	return nil
}
