package handler_test

import (
	"context"
	"time"

	"givebox/backend/internal/chat"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"
	"givebox/backend/internal/presence"
)

type mockMessageService struct {
	sendFn     func(ctx context.Context, conversationID, senderID string, p chat.Payload) (*models.Message, error)
	listFn     func(ctx context.Context, callerID, conversationID string, limit int, before int64) ([]models.Message, error)
	markReadFn func(ctx context.Context, conversationID, readerID string) (int64, error)
}

func (m *mockMessageService) Send(ctx context.Context, conversationID, senderID string, p chat.Payload) (*models.Message, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, conversationID, senderID, p)
	}
	return &models.Message{}, nil
}

func (m *mockMessageService) List(ctx context.Context, callerID, conversationID string, limit int, before int64) ([]models.Message, error) {
	if m.listFn != nil {
		return m.listFn(ctx, callerID, conversationID, limit, before)
	}
	return nil, nil
}

func (m *mockMessageService) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, conversationID, readerID)
	}
	return 0, nil
}

type mockPresenceService struct {
	setOnlineFn func(ctx context.Context, userID, conversationID string, online bool) error
	peersFn     func(ctx context.Context, callerID, conversationID string) ([]presence.PeerStatus, error)
}

func (m *mockPresenceService) SetOnline(ctx context.Context, userID, conversationID string, online bool) error {
	if m.setOnlineFn != nil {
		return m.setOnlineFn(ctx, userID, conversationID, online)
	}
	return nil
}

func (m *mockPresenceService) Peers(ctx context.Context, callerID, conversationID string) ([]presence.PeerStatus, error) {
	if m.peersFn != nil {
		return m.peersFn(ctx, callerID, conversationID)
	}
	return nil, nil
}

type mockLocationService struct {
	startFn  func(ctx context.Context, userID, conversationID string, lat, lng float64, d time.Duration) (*models.LiveLocation, error)
	updateFn func(ctx context.Context, userID, conversationID string, lat, lng float64) (*models.LiveLocation, error)
	stopFn   func(ctx context.Context, userID, conversationID string) (bool, error)
	activeFn func(ctx context.Context, callerID, conversationID string) ([]models.LiveLocation, error)
}

func (m *mockLocationService) Start(ctx context.Context, userID, conversationID string, lat, lng float64, d time.Duration) (*models.LiveLocation, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID, conversationID, lat, lng, d)
	}
	return &models.LiveLocation{}, nil
}

func (m *mockLocationService) Update(ctx context.Context, userID, conversationID string, lat, lng float64) (*models.LiveLocation, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, conversationID, lat, lng)
	}
	return &models.LiveLocation{}, nil
}

func (m *mockLocationService) Stop(ctx context.Context, userID, conversationID string) (bool, error) {
	if m.stopFn != nil {
		return m.stopFn(ctx, userID, conversationID)
	}
	return false, nil
}

func (m *mockLocationService) Active(ctx context.Context, callerID, conversationID string) ([]models.LiveLocation, error) {
	if m.activeFn != nil {
		return m.activeFn(ctx, callerID, conversationID)
	}
	return nil, nil
}

type mockNotifier struct {
	notifyFn func(ctx context.Context, callerID string, req notify.Request) (*notify.Outcome, error)
	pushFn   func(ctx context.Context, callerID string, req notify.PushRequest) (*notify.Result, error)
}

func (m *mockNotifier) Notify(ctx context.Context, callerID string, req notify.Request) (*notify.Outcome, error) {
	if m.notifyFn != nil {
		return m.notifyFn(ctx, callerID, req)
	}
	return &notify.Outcome{}, nil
}

func (m *mockNotifier) Push(ctx context.Context, callerID string, req notify.PushRequest) (*notify.Result, error) {
	if m.pushFn != nil {
		return m.pushFn(ctx, callerID, req)
	}
	return &notify.Result{Success: true}, nil
}

type mockNotificationStore struct {
	listFn     func(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	markReadFn func(ctx context.Context, userID, notificationID string) error
	markAllFn  func(ctx context.Context, userID string) (int64, error)
	prefsFn    func(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
	savePrefFn func(ctx context.Context, pref *models.NotificationPreference) error
}

func (m *mockNotificationStore) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockNotificationStore) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (m *mockNotificationStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if m.markAllFn != nil {
		return m.markAllFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationStore) GetPreferences(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error) {
	if m.prefsFn != nil {
		return m.prefsFn(ctx, userIDs)
	}
	return map[string]models.NotificationPreference{}, nil
}

func (m *mockNotificationStore) SavePreference(ctx context.Context, pref *models.NotificationPreference) error {
	if m.savePrefFn != nil {
		return m.savePrefFn(ctx, pref)
	}
	return nil
}

type mockPushRegistry struct {
	saveFn     func(ctx context.Context, reg *models.PushRegistration) error
	deleteFn   func(ctx context.Context, userID, endpoint string) error
	linkCodeFn func(ctx context.Context, code, userID string, ttl time.Duration) error
}

func (m *mockPushRegistry) SavePushRegistration(ctx context.Context, reg *models.PushRegistration) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, reg)
	}
	return nil
}

func (m *mockPushRegistry) DeletePushRegistrationByEndpoint(ctx context.Context, userID, endpoint string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, endpoint)
	}
	return nil
}

func (m *mockPushRegistry) SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error {
	if m.linkCodeFn != nil {
		return m.linkCodeFn(ctx, code, userID, ttl)
	}
	return nil
}

type mockRequestStore struct {
	getFn    func(ctx context.Context, conversationID string) (*models.Conversation, error)
	updateFn func(ctx context.Context, requestID string, status models.RequestStatus) error
}

func (m *mockRequestStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, conversationID)
	}
	return nil, nil
}

func (m *mockRequestStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, requestID, status)
	}
	return nil
}

type allowAll struct{}

func (allowAll) CanSubscribe(context.Context, string, string) error { return nil }

type nopPresence struct{}

func (nopPresence) SetOnline(context.Context, string, string, bool) error { return nil }
