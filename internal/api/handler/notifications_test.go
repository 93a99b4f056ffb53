package handler_test

import (
	"context"
	"fmt"
	"net/http"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Notification routes", func() {
	var api *testAPI

	BeforeEach(func() {
		api = newTestAPI()
	})

	Describe("POST /api/v1/push/send", func() {
		It("returns the fan-out counts", func() {
			recipients := []string{uuid.NewString(), uuid.NewString()}
			api.notifier.pushFn = func(_ context.Context, caller string, req notify.PushRequest) (*notify.Result, error) {
				Expect(caller).To(Equal(api.userID))
				Expect(req.RecipientIDs).To(Equal(recipients))
				return &notify.Result{Success: true, Sent: 1, Failed: 1, Authorized: 2, Total: 2}, nil
			}

			w := api.do(http.MethodPost, "/api/v1/push/send", map[string]any{"recipient_ids": recipients, "title": "Pickup", "body": "at 5"})

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["success"]).To(BeTrue())
			Expect(resp["sent"]).To(BeNumerically("==", 1))
			Expect(resp["failed"]).To(BeNumerically("==", 1))
			Expect(resp["authorized"]).To(BeNumerically("==", 2))
			Expect(resp["total"]).To(BeNumerically("==", 2))
		})

		It("returns 403 when nobody may be reached", func() {
			api.notifier.pushFn = func(context.Context, string, notify.PushRequest) (*notify.Result, error) {
				return nil, fmt.Errorf("no connected recipients: %w", apperr.ErrForbidden)
			}

			w := api.do(http.MethodPost, "/api/v1/push/send", map[string]any{"recipient_ids": []string{uuid.NewString()}, "title": "x"})

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("keeps the reason of an input error", func() {
			api.notifier.pushFn = func(context.Context, string, notify.PushRequest) (*notify.Result, error) {
				return nil, apperr.Invalid("title is 101 characters, limit 100")
			}

			w := api.do(http.MethodPost, "/api/v1/push/send", map[string]any{"recipient_ids": []string{uuid.NewString()}, "title": "x"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["error"]).To(ContainSubstring("limit 100"))
		})
	})

	Describe("POST /api/v1/notifications", func() {
		It("notifies the recipient", func() {
			recipient := uuid.NewString()
			api.notifier.notifyFn = func(_ context.Context, _ string, req notify.Request) (*notify.Outcome, error) {
				Expect(req.RecipientID).To(Equal(recipient))
				Expect(req.SendPush).To(BeTrue())
				return &notify.Outcome{
					Notification: &models.Notification{ID: "n1", UserID: recipient},
					Push:         &notify.Result{Success: true, Sent: 1, Authorized: 1, Total: 1},
				}, nil
			}

			w := api.do(http.MethodPost, "/api/v1/notifications", map[string]any{
				"recipient_id": recipient, "title": "Hi", "type": "system", "send_push": true,
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(decode(w)["notification"]).To(HaveKeyWithValue("id", "n1"))
		})

		It("requires a recipient", func() {
			w := api.do(http.MethodPost, "/api/v1/notifications", map[string]any{"title": "Hi"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("inbox", func() {
		It("lists the caller's notifications", func() {
			api.notifications.listFn = func(_ context.Context, userID string, limit int) ([]models.Notification, error) {
				Expect(userID).To(Equal(api.userID))
				Expect(limit).To(Equal(50))
				return []models.Notification{{ID: "n1"}, {ID: "n2"}}, nil
			}

			w := api.do(http.MethodGet, "/api/v1/notifications", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["notifications"]).To(HaveLen(2))
		})

		It("returns 404 for someone else's notification", func() {
			api.notifications.markReadFn = func(context.Context, string, string) error {
				return fmt.Errorf("notification: %w", apperr.ErrNotFound)
			}

			w := api.do(http.MethodPost, "/api/v1/notifications/n9/read", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("marks everything read", func() {
			api.notifications.markAllFn = func(context.Context, string) (int64, error) { return 4, nil }

			w := api.do(http.MethodPost, "/api/v1/notifications/read-all", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["updated"]).To(BeNumerically("==", 4))
		})
	})

	Describe("preferences", func() {
		It("defaults to push enabled", func() {
			w := api.do(http.MethodGet, "/api/v1/notifications/preferences", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["push_enabled"]).To(BeTrue())
		})

		It("saves muted types for the caller", func() {
			var saved *models.NotificationPreference
			api.notifications.savePrefFn = func(_ context.Context, p *models.NotificationPreference) error {
				saved = p
				return nil
			}

			w := api.do(http.MethodPut, "/api/v1/notifications/preferences", map[string]any{
				"push_enabled": true, "muted_types": []string{"new_message"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(saved.UserID).To(Equal(api.userID))
			Expect(saved.AllowsPush("new_message")).To(BeFalse())
		})

		It("rejects unknown types", func() {
			w := api.do(http.MethodPut, "/api/v1/notifications/preferences", map[string]any{
				"push_enabled": true, "muted_types": []string{"spam"},
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
