package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"

	"github.com/SherClockHolmes/webpush-go"
)

// WebPush sends VAPID-signed Web Push messages.
type WebPush struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
	HTTPClient webpush.HTTPClient
}

func NewWebPush(cfg config.WebPushConfig) *WebPush {
	return &WebPush{
		PublicKey:  cfg.PublicKey,
		PrivateKey: cfg.PrivateKey,
		Subject:    cfg.Subject,
		TTL:        config.PushTTLSeconds,
	}
}

func (w *WebPush) Send(ctx context.Context, reg models.PushRegistration, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	sub := &webpush.Subscription{
		Endpoint: reg.Endpoint,
		Keys:     webpush.Keys{P256dh: reg.P256dh, Auth: reg.Auth},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      w.HTTPClient,
		Subscriber:      w.Subject,
		VAPIDPublicKey:  w.PublicKey,
		VAPIDPrivateKey: w.PrivateKey,
		TTL:             w.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return apperr.Upstream("web push", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("web push status %d: %w", resp.StatusCode, ErrGone)
	case resp.StatusCode >= 400:
		return apperr.Upstream("web push", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// GenerateVAPIDKeys returns a new (public, private) key pair.
func GenerateVAPIDKeys() (string, string, error) {
	private, public, err := webpush.GenerateVAPIDKeys()
	return public, private, err
}
