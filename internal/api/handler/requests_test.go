package handler_test

import (
	"context"
	"errors"
	"net/http"

	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("POST /api/v1/requests/:id/accept", func() {
	var (
		api       *testAPI
		conv      *models.Conversation
		updated   []models.RequestStatus
		notified  []notify.Request
		requester string
	)

	BeforeEach(func() {
		api = newTestAPI()
		requester = uuid.NewString()
		conv = &models.Conversation{
			ID:          uuid.NewString(),
			ListingID:   uuid.NewString(),
			OwnerID:     api.userID,
			RequesterID: requester,
			Status:      models.RequestPending,
		}
		updated, notified = nil, nil
		api.requests.getFn = func(_ context.Context, id string) (*models.Conversation, error) {
			Expect(id).To(Equal(conv.ID))
			c := *conv
			return &c, nil
		}
		api.requests.updateFn = func(_ context.Context, _ string, status models.RequestStatus) error {
			updated = append(updated, status)
			return nil
		}
		api.notifier.notifyFn = func(_ context.Context, caller string, req notify.Request) (*notify.Outcome, error) {
			Expect(caller).To(Equal(api.userID))
			notified = append(notified, req)
			return &notify.Outcome{}, nil
		}
	})

	It("accepts and notifies the requester", func() {
		w := api.do(http.MethodPost, "/api/v1/requests/"+conv.ID+"/accept", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["status"]).To(Equal("accepted"))
		Expect(updated).To(Equal([]models.RequestStatus{models.RequestAccepted}))
		Expect(notified).To(HaveLen(1))
		Expect(notified[0].RecipientID).To(Equal(requester))
		Expect(notified[0].Type).To(Equal("request_accepted"))
		Expect(*notified[0].RelatedRequestID).To(Equal(conv.ID))
	})

	It("still succeeds when the notification fails", func() {
		api.notifier.notifyFn = func(context.Context, string, notify.Request) (*notify.Outcome, error) {
			return nil, errors.New("push provider down")
		}

		w := api.do(http.MethodPost, "/api/v1/requests/"+conv.ID+"/accept", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(updated).To(HaveLen(1))
	})

	It("forbids the requester from accepting", func() {
		conv.OwnerID, conv.RequesterID = requester, api.userID

		w := api.do(http.MethodPost, "/api/v1/requests/"+conv.ID+"/accept", nil)

		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(updated).To(BeEmpty())
	})

	It("does nothing for an already accepted request", func() {
		conv.Status = models.RequestAccepted

		w := api.do(http.MethodPost, "/api/v1/requests/"+conv.ID+"/accept", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(updated).To(BeEmpty())
		Expect(notified).To(BeEmpty())
	})

	It("rejects a declined request", func() {
		conv.Status = models.RequestDeclined

		w := api.do(http.MethodPost, "/api/v1/requests/"+conv.ID+"/accept", nil)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
