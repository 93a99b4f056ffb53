package storage

import (
	"context"
	"fmt"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"
)

// ConnectedTargets returns the subset of targetIDs related to callerID through
// a request in either direction, whatever its status.
func (s *Service) ConnectedTargets(ctx context.Context, callerID string, targetIDs []string) ([]string, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}

	// Targets who requested one of the caller's listings.
	var requesters []string
	err := s.DB.WithContext(ctx).Model(&models.Request{}).
		Joins("JOIN listings ON listings.id = requests.listing_id").
		Where("listings.owner_id = ? AND requests.requester_id IN ?", callerID, targetIDs).
		Distinct().
		Pluck("requests.requester_id", &requesters).Error
	if err != nil {
		return nil, apperr.Upstream("query requesters", err)
	}

	// Targets owning a listing the caller requested.
	var owners []string
	err = s.DB.WithContext(ctx).Model(&models.Listing{}).
		Joins("JOIN requests ON requests.listing_id = listings.id").
		Where("requests.requester_id = ? AND listings.owner_id IN ?", callerID, targetIDs).
		Distinct().
		Pluck("listings.owner_id", &owners).Error
	if err != nil {
		return nil, apperr.Upstream("query owners", err)
	}

	seen := make(map[string]bool, len(requesters)+len(owners))
	connected := make([]string, 0, len(requesters)+len(owners))
	for _, id := range append(requesters, owners...) {
		if !seen[id] {
			seen[id] = true
			connected = append(connected, id)
		}
	}
	return connected, nil
}

func (s *Service) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	res := s.DB.WithContext(ctx).Table("requests").
		Select("requests.id AS id, requests.listing_id AS listing_id, listings.owner_id AS owner_id, requests.requester_id AS requester_id, requests.status AS status").
		Joins("JOIN listings ON listings.id = requests.listing_id").
		Where("requests.id = ?", conversationID).
		Limit(1).
		Scan(&conv)
	if res.Error != nil {
		return nil, apperr.Upstream("get conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, apperr.ErrNotFound)
	}
	return &conv, nil
}

func (s *Service) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", requestID).
		Update("status", status)
	if res.Error != nil {
		return apperr.Upstream("update request status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("request %s: %w", requestID, apperr.ErrNotFound)
	}
	return nil
}
