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

// SavePushRegistration stores reg. Re-registering a known endpoint moves it
// to reg's owner and keys; reg is reloaded so it carries the stored row's ID.
func (s *Service) SavePushRegistration(ctx context.Context, reg *models.PushRegistration) error {
	db := s.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "channel", "p256dh", "auth"}),
	}).Create(reg).Error
	if err != nil {
		return apperr.Upstream("save push registration", err)
	}
	var stored models.PushRegistration
	if err := db.Where("endpoint = ?", reg.Endpoint).Take(&stored).Error; err != nil {
		return apperr.Upstream("reload push registration", err)
	}
	*reg = stored
	return nil
}

func (s *Service) ListPushRegistrations(ctx context.Context, userIDs []string) ([]models.PushRegistration, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var regs []models.PushRegistration
	if err := s.DB.WithContext(ctx).Where("user_id IN ?", userIDs).Order("created_at asc").Find(&regs).Error; err != nil {
		return nil, apperr.Upstream("list push registrations", err)
	}
	return regs, nil
}

func (s *Service) DeletePushRegistration(ctx context.Context, id string) error {
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.PushRegistration{}).Error; err != nil {
		return apperr.Upstream("delete push registration", err)
	}
	return nil
}

func (s *Service) DeletePushRegistrationByEndpoint(ctx context.Context, userID, endpoint string) error {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushRegistration{})
	if res.Error != nil {
		return apperr.Upstream("delete push registration", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("push registration: %w", apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) GetPushRegistrationByEndpoint(ctx context.Context, endpoint string) (*models.PushRegistration, error) {
	var reg models.PushRegistration
	err := s.DB.WithContext(ctx).Where("endpoint = ?", endpoint).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("push registration: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Upstream("get push registration", err)
	}
	return &reg, nil
}
