package storage_test

import (
	"context"
	"testing"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications_ListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := &models.Notification{UserID: "bob", Title: "old", Body: "b", Type: "system", CreatedAt: testNow.Add(-time.Hour)}
	fresh := &models.Notification{UserID: "bob", Title: "fresh", Body: "b", Type: "new_message", CreatedAt: testNow}
	other := &models.Notification{UserID: "carol", Title: "x", Body: "b", Type: "system", CreatedAt: testNow}
	for _, n := range []*models.Notification{old, fresh, other} {
		require.NoError(t, f.svc.CreateNotification(ctx, n))
	}

	list, err := f.svc.ListNotifications(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "fresh", list[0].Title)

	assert.ErrorIs(t, f.svc.MarkNotificationRead(ctx, "bob", other.ID), apperr.ErrNotFound)
	require.NoError(t, f.svc.MarkNotificationRead(ctx, "bob", fresh.ID))
	require.NoError(t, f.svc.MarkNotificationRead(ctx, "bob", fresh.ID))

	n, err := f.svc.MarkAllNotificationsRead(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPreferences_DefaultsAndSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SavePreference(ctx, &models.NotificationPreference{
		UserID: "bob", PushEnabled: false,
	}))
	require.NoError(t, f.svc.SavePreference(ctx, &models.NotificationPreference{
		UserID: "carol", PushEnabled: true, MutedTypes: models.StringList{"new_message"},
	}))

	prefs, err := f.svc.GetPreferences(ctx, []string{"bob", "carol", "dave"})
	require.NoError(t, err)
	require.Len(t, prefs, 3)
	assert.False(t, prefs["bob"].AllowsPush("system"))
	assert.False(t, prefs["carol"].AllowsPush("new_message"))
	assert.True(t, prefs["carol"].AllowsPush("system"))
	assert.True(t, prefs["dave"].AllowsPush("new_message"))
}
