package storage

import (
	"context"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"
)

func (s *Service) SaveGateAudit(ctx context.Context, audit *models.GateAudit) error {
	if err := s.DB.WithContext(ctx).Create(audit).Error; err != nil {
		return apperr.Upstream("save gate audit", err)
	}
	return nil
}

// ListGateAudits returns the newest decisions, optionally for one caller.
func (s *Service) ListGateAudits(ctx context.Context, callerID string, limit int) ([]models.GateAudit, error) {
	var rows []models.GateAudit
	q := s.DB.WithContext(ctx).Order("created_at desc").Order("id desc")
	if callerID != "" {
		q = q.Where("caller_id = ?", callerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Upstream("list gate audits", err)
	}
	return rows, nil
}
