package push_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"
	"givebox/backend/internal/push"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebPush(t *testing.T) *push.WebPush {
	t.Helper()
	public, private, err := push.GenerateVAPIDKeys()
	require.NoError(t, err)
	return &push.WebPush{PublicKey: public, PrivateKey: private, Subject: "ops@givebox.test", TTL: 60}
}

func registration(t *testing.T, endpoint string) models.PushRegistration {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return models.PushRegistration{
		Channel:  models.PushWeb,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestWebPush_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusCreated, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{http.StatusGone, func(t *testing.T, err error) { assert.ErrorIs(t, err, push.ErrGone) }},
		{http.StatusNotFound, func(t *testing.T, err error) { assert.ErrorIs(t, err, push.ErrGone) }},
		{http.StatusTooManyRequests, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrUpstream) }},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			wp := newWebPush(t)
			err := wp.Send(context.Background(), registration(t, srv.URL+"/push/abc"), push.Message{Title: "hi", Body: "there"})
			tt.check(t, err)
			assert.Contains(t, gotAuth, "vapid")
		})
	}
}

type nopSender struct{}

func (nopSender) Send(context.Context, models.PushRegistration, push.Message) error {
	return nil
}

func TestRouter(t *testing.T) {
	router := push.Router{models.PushWeb: nopSender{}}
	assert.NoError(t, router.Send(context.Background(), models.PushRegistration{Channel: models.PushWeb}, push.Message{}))
	assert.Error(t, router.Send(context.Background(), models.PushRegistration{Channel: models.PushTelegram}, push.Message{}))
}
