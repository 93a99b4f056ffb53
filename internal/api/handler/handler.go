package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/auth"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"
	"givebox/backend/internal/presence"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageService interface {
	Send(ctx context.Context, conversationID, senderID string, p chat.Payload) (*models.Message, error)
	List(ctx context.Context, callerID, conversationID string, limit int, before int64) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

type PresenceService interface {
	SetOnline(ctx context.Context, userID, conversationID string, online bool) error
	Peers(ctx context.Context, callerID, conversationID string) ([]presence.PeerStatus, error)
}

type LocationService interface {
	Start(ctx context.Context, userID, conversationID string, lat, lng float64, duration time.Duration) (*models.LiveLocation, error)
	Update(ctx context.Context, userID, conversationID string, lat, lng float64) (*models.LiveLocation, error)
	Stop(ctx context.Context, userID, conversationID string) (bool, error)
	Active(ctx context.Context, callerID, conversationID string) ([]models.LiveLocation, error)
}

type Notifier interface {
	Notify(ctx context.Context, callerID string, req notify.Request) (*notify.Outcome, error)
	Push(ctx context.Context, callerID string, req notify.PushRequest) (*notify.Result, error)
}

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	GetPreferences(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
	SavePreference(ctx context.Context, pref *models.NotificationPreference) error
}

type PushRegistry interface {
	SavePushRegistration(ctx context.Context, reg *models.PushRegistration) error
	DeletePushRegistrationByEndpoint(ctx context.Context, userID, endpoint string) error
	SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error
}

type RequestStore interface {
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Services are the collaborators the handlers call into.
type Services struct {
	Messages      MessageService
	Presence      PresenceService
	Locations     LocationService
	Notifier      Notifier
	Notifications NotificationStore
	Push          PushRegistry
	Requests      RequestStore
	Tokens        TokenIssuer
	Hub           *chathub.ManagerService

	VAPIDPublicKey      string
	TelegramBotUsername string
}

type Handler struct {
	Services
}

func NewHandler(s Services) *Handler {
	return &Handler{Services: s}
}

func callerID(c *gin.Context) string {
	return auth.UserID(c.Request.Context())
}

// conversationParam returns the :id path parameter, or writes a 400.
func conversationParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, apperr.Invalid("conversation id %q is not a uuid", id))
		return "", false
	}
	return id, true
}

func limitQuery(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, apperr.Invalid("limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Invalid("invalid request body: %v", err))
		return false
	}
	return true
}

// respondError writes {"error": ...} with the status of the error kind.
// Server-side failures are logged with their full chain.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
