// Package livelocation implements time-boxed position sharing. A session is
// live only while is_sharing is set and expires_at is in the future; it is
// never extended by activity.
package livelocation

import (
	"context"
	"log/slog"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/config"
	"givebox/backend/internal/geo"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"
	"givebox/backend/internal/telemetry"
)

type Store interface {
	UpsertLiveLocation(ctx context.Context, loc *models.LiveLocation) error
	UpdateLiveLocationPosition(ctx context.Context, userID, conversationID string, lat, lng float64, now time.Time) (*models.LiveLocation, error)
	StopLiveLocation(ctx context.Context, userID, conversationID string) (bool, error)
	ListLiveLocations(ctx context.Context, conversationID string) ([]models.LiveLocation, error)
}

type Gate interface {
	Conversation(ctx context.Context, callerID, conversationID string) (*models.Conversation, error)
}

// Announcer posts the live-location marker into the conversation log.
type Announcer interface {
	Send(ctx context.Context, conversationID, senderID string, p chat.Payload) (*models.Message, error)
}

type Sessions struct {
	Store     Store
	Gate      Gate
	Announcer Announcer
	Now       func() time.Time
}

func NewSessions(store Store, gate Gate, announcer Announcer) *Sessions {
	return &Sessions{
		Store:     store,
		Gate:      gate,
		Announcer: announcer,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ShareDuration validates a requested duration. Zero means the default.
func ShareDuration(d time.Duration) (time.Duration, error) {
	if d == 0 {
		return config.DefaultShareDuration, nil
	}
	if d < config.MinShareDuration || d > config.MaxShareDuration {
		return 0, apperr.Invalid("share duration must be between %s and %s", config.MinShareDuration, config.MaxShareDuration)
	}
	return d, nil
}

// Start seeds the session with the first fix and expires_at = now+duration,
// replacing any earlier session of the same user in the conversation.
func (s *Sessions) Start(ctx context.Context, userID, conversationID string, lat, lng float64, duration time.Duration) (*models.LiveLocation, error) {
	ctx, span := telemetry.StartSpan(ctx, "livelocation.Start")
	defer span.End()

	d, err := ShareDuration(duration)
	if err != nil {
		return nil, err
	}
	if err := geo.CheckCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if _, err := s.Gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	now := s.Now()
	loc := &models.LiveLocation{
		UserID:         userID,
		ConversationID: conversationID,
		Latitude:       lat,
		Longitude:      lng,
		IsSharing:      true,
		ExpiresAt:      now.Add(d),
		UpdatedAt:      now,
	}
	if err := s.Store.UpsertLiveLocation(ctx, loc); err != nil {
		return nil, err
	}

	if s.Announcer != nil {
		if _, err := s.Announcer.Send(ctx, conversationID, userID, chat.LiveLocation{Latitude: lat, Longitude: lng}); err != nil {
			ctx = logger.WithLogFields(ctx, logger.LogFields{ConversationID: logger.Ptr(conversationID), Component: "givebox.livelocation"})
			slog.WarnContext(ctx, "live location marker not posted", "error", err)
		}
	}
	return loc, nil
}

// Update moves an active session. It never touches expires_at; an expired or
// stopped session is NotFound.
func (s *Sessions) Update(ctx context.Context, userID, conversationID string, lat, lng float64) (*models.LiveLocation, error) {
	if err := geo.CheckCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if _, err := s.Gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.Store.UpdateLiveLocationPosition(ctx, userID, conversationID, lat, lng, s.Now())
}

// Stop clears is_sharing on the caller's own row. It is idempotent and does
// not require the conversation to still be accepted.
func (s *Sessions) Stop(ctx context.Context, userID, conversationID string) (bool, error) {
	if userID == "" {
		return false, apperr.ErrUnauthorized
	}
	return s.Store.StopLiveLocation(ctx, userID, conversationID)
}

// Active lists the sessions that are live now.
func (s *Sessions) Active(ctx context.Context, callerID, conversationID string) ([]models.LiveLocation, error) {
	if _, err := s.Gate.Conversation(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.Store.ListLiveLocations(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	live := make([]models.LiveLocation, 0, len(rows))
	for _, r := range rows {
		if r.IsLive(now) {
			live = append(live, r)
		}
	}
	return live, nil
}
