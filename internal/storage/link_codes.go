package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"givebox/backend/internal/apperr"

	"github.com/redis/go-redis/v9"
)

const linkCodePrefix = "tg_link:"

var errNoRedis = errors.New("redis not configured")

// SaveTelegramLinkCode stores a one-time code mapping to userID.
func (s *Service) SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error {
	if s.Redis == nil {
		return apperr.Upstream("save link code", errNoRedis)
	}
	if err := s.Redis.Set(ctx, linkCodePrefix+code, userID, ttl).Err(); err != nil {
		return apperr.Upstream("save link code", err)
	}
	return nil
}

// ConsumeTelegramLinkCode returns the user behind code and deletes it.
func (s *Service) ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error) {
	if s.Redis == nil {
		return "", apperr.Upstream("consume link code", errNoRedis)
	}
	userID, err := s.Redis.GetDel(ctx, linkCodePrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("link code: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return "", apperr.Upstream("consume link code", err)
	}
	return userID, nil
}
