package handler_test

import (
	"context"
	"net/http"
	"time"

	"givebox/backend/internal/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Push registration routes", func() {
	var api *testAPI

	BeforeEach(func() {
		api = newTestAPI()
	})

	It("stores a web push subscription for the caller", func() {
		var saved *models.PushRegistration
		api.push.saveFn = func(_ context.Context, reg *models.PushRegistration) error {
			saved = reg
			return nil
		}

		w := api.do(http.MethodPost, "/api/v1/push/subscriptions", map[string]any{
			"endpoint": "https://fcm.googleapis.com/fcm/send/abc",
			"keys":     map[string]string{"p256dh": "key", "auth": "secret"},
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(saved.UserID).To(Equal(api.userID))
		Expect(saved.Channel).To(Equal(models.PushWeb))
		Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
	})

	It("rejects a non-https endpoint", func() {
		w := api.do(http.MethodPost, "/api/v1/push/subscriptions", map[string]any{
			"endpoint": "http://example.com/push",
			"keys":     map[string]string{"p256dh": "key", "auth": "secret"},
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("deletes by endpoint", func() {
		var gotEndpoint string
		api.push.deleteFn = func(_ context.Context, _, endpoint string) error {
			gotEndpoint = endpoint
			return nil
		}

		w := api.do(http.MethodDelete, "/api/v1/push/subscriptions", map[string]any{"endpoint": "https://push/x"})

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(gotEndpoint).To(Equal("https://push/x"))
	})

	It("exposes the VAPID public key", func() {
		w := api.do(http.MethodGet, "/api/v1/push/vapid-key", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["public_key"]).To(Equal("BPublicKey"))
	})

	It("issues a telegram link code", func() {
		var code, user string
		var ttl time.Duration
		api.push.linkCodeFn = func(_ context.Context, c, u string, d time.Duration) error {
			code, user, ttl = c, u, d
			return nil
		}

		w := api.do(http.MethodPost, "/api/v1/push/telegram/link", nil)

		Expect(w.Code).To(Equal(http.StatusCreated))
		resp := decode(w)
		Expect(resp["code"]).To(Equal(code))
		Expect(resp["link"]).To(Equal("https://t.me/giveboxbot?start=" + code))
		Expect(user).To(Equal(api.userID))
		Expect(ttl).To(Equal(10 * time.Minute))
	})
})
