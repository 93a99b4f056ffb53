package storage

import (
	"context"
	"log/slog"
	"time"

	"givebox/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the durable store as seen by the realtime core.
type Storage interface {
	// Relationships
	ConnectedTargets(ctx context.Context, callerID string, targetIDs []string) ([]string, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error

	// Messages
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int, before int64) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)

	// Presence
	UpsertPresence(ctx context.Context, p *models.Presence) error
	ListPresence(ctx context.Context, conversationID string) ([]models.Presence, error)

	// Live locations
	UpsertLiveLocation(ctx context.Context, loc *models.LiveLocation) error
	UpdateLiveLocationPosition(ctx context.Context, userID, conversationID string, lat, lng float64, now time.Time) (*models.LiveLocation, error)
	StopLiveLocation(ctx context.Context, userID, conversationID string) (bool, error)
	ListLiveLocations(ctx context.Context, conversationID string) ([]models.LiveLocation, error)
	ExpireLiveLocations(ctx context.Context, now time.Time) (int, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	GetPreferences(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *models.NotificationPreference) error

	// Push registrations
	SavePushRegistration(ctx context.Context, reg *models.PushRegistration) error
	ListPushRegistrations(ctx context.Context, userIDs []string) ([]models.PushRegistration, error)
	DeletePushRegistration(ctx context.Context, id string) error
	DeletePushRegistrationByEndpoint(ctx context.Context, userID, endpoint string) error
	GetPushRegistrationByEndpoint(ctx context.Context, endpoint string) (*models.PushRegistration, error)

	// Audit
	SaveGateAudit(ctx context.Context, audit *models.GateAudit) error
	ListGateAudits(ctx context.Context, callerID string, limit int) ([]models.GateAudit, error)

	// Telegram link codes (Redis)
	SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error
	ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error)
}

// ChangePublisher receives a notification for every committed row change.
type ChangePublisher interface {
	Publish(ctx context.Context, change models.Change) error
}

type Service struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Changes ChangePublisher
	Now     func() time.Time
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor. rdb and changes may be nil; writes are then
// not announced and link codes are unavailable.
func NewStorageService(db *gorm.DB, rdb *redis.Client, changes ChangePublisher) *Service {
	return &Service{
		DB:      db,
		Redis:   rdb,
		Changes: changes,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// publish announces a committed change. A failed publish does not undo the
// write: subscribers recover by re-listing after a reconnect.
func (s *Service) publish(ctx context.Context, table string, op models.ChangeOp, conversationID string, record any) {
	if s.Changes == nil {
		return
	}
	change, err := models.NewChange(table, op, conversationID, record, s.Now())
	if err != nil {
		slog.ErrorContext(ctx, "encode change", "table", table, "error", err)
		return
	}
	if err := s.Changes.Publish(ctx, change); err != nil {
		slog.WarnContext(ctx, "publish change failed", "table", table, "conversation_id", conversationID, "error", err)
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels()...)
}
