package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"
	"givebox/backend/internal/presence"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Conversation routes", func() {
	var (
		api    *testAPI
		convID string
		base   string
	)

	BeforeEach(func() {
		api = newTestAPI()
		convID = uuid.NewString()
		base = "/api/v1/conversations/" + convID
	})

	Describe("POST /messages", func() {
		It("sends a text message as the caller", func() {
			var gotSender string
			var gotPayload chat.Payload
			api.messages.sendFn = func(_ context.Context, conv, sender string, p chat.Payload) (*models.Message, error) {
				gotSender, gotPayload = sender, p
				return &models.Message{ID: 42, ConversationID: conv, SenderID: sender, Type: p.Kind(), Content: "hi"}, nil
			}

			w := api.do(http.MethodPost, base+"/messages", map[string]any{"message_type": "text", "content": "hi"})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(gotSender).To(Equal(api.userID))
			Expect(gotPayload).To(Equal(chat.Text{Body: "hi"}))
			Expect(decode(w)["id"]).To(Equal("42"))
		})

		It("parses a location payload", func() {
			var gotPayload chat.Payload
			api.messages.sendFn = func(_ context.Context, _, _ string, p chat.Payload) (*models.Message, error) {
				gotPayload = p
				return &models.Message{}, nil
			}

			w := api.do(http.MethodPost, base+"/messages", map[string]any{
				"message_type":  "location",
				"location_data": map[string]any{"latitude": 50.45, "longitude": 30.52, "address": "Maidan"},
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(gotPayload).To(Equal(chat.Location{Latitude: 50.45, Longitude: 30.52, Address: "Maidan"}))
		})

		It("rejects oversized content before reaching the service", func() {
			called := false
			api.messages.sendFn = func(context.Context, string, string, chat.Payload) (*models.Message, error) {
				called = true
				return nil, nil
			}

			w := api.do(http.MethodPost, base+"/messages", map[string]any{"content": strings.Repeat("a", 4001)})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(called).To(BeFalse())
		})

		It("maps a forbidden gate decision to 403", func() {
			api.messages.sendFn = func(context.Context, string, string, chat.Payload) (*models.Message, error) {
				return nil, fmt.Errorf("conversation not accepted: %w", apperr.ErrForbidden)
			}

			w := api.do(http.MethodPost, base+"/messages", map[string]any{"content": "hi"})

			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decode(w)["error"]).To(Equal("forbidden"))
		})

		It("hides upstream detail from the client", func() {
			api.messages.sendFn = func(context.Context, string, string, chat.Payload) (*models.Message, error) {
				return nil, apperr.Upstream("create message", fmt.Errorf("pq: connection refused"))
			}

			w := api.do(http.MethodPost, base+"/messages", map[string]any{"content": "hi"})

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Expect(w.Body.String()).NotTo(ContainSubstring("pq"))
		})

		It("returns 400 for a conversation id that is not a uuid", func() {
			w := api.do(http.MethodPost, "/api/v1/conversations/abc/messages", map[string]any{"content": "hi"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 401 without a token", func() {
			w := api.doAs("", http.MethodPost, base+"/messages", map[string]any{"content": "hi"})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("GET /messages", func() {
		It("passes the limit through and never returns null", func() {
			var gotLimit int
			api.messages.listFn = func(_ context.Context, _, _ string, limit int, before int64) ([]models.Message, error) {
				gotLimit = limit
				Expect(before).To(BeZero())
				return nil, nil
			}

			w := api.do(http.MethodGet, base+"/messages?limit=20", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotLimit).To(Equal(20))
			Expect(decode(w)["messages"]).To(BeEmpty())
			Expect(w.Body.String()).To(ContainSubstring(`"messages":[]`))
		})

		It("rejects a malformed limit", func() {
			w := api.do(http.MethodGet, base+"/messages?limit=ten", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("passes the before cursor through", func() {
			var gotBefore int64
			api.messages.listFn = func(_ context.Context, _, _ string, _ int, before int64) ([]models.Message, error) {
				gotBefore = before
				return nil, nil
			}

			w := api.do(http.MethodGet, base+"/messages?before=1234567890123", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotBefore).To(Equal(int64(1234567890123)))
		})

		It("rejects a malformed before cursor", func() {
			called := false
			api.messages.listFn = func(context.Context, string, string, int, int64) ([]models.Message, error) {
				called = true
				return nil, nil
			}

			Expect(api.do(http.MethodGet, base+"/messages?before=latest", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(api.do(http.MethodGet, base+"/messages?before=-5", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(called).To(BeFalse())
		})

		It("maps an unknown cursor to 404", func() {
			api.messages.listFn = func(context.Context, string, string, int, int64) ([]models.Message, error) {
				return nil, fmt.Errorf("message 9: %w", apperr.ErrNotFound)
			}

			w := api.do(http.MethodGet, base+"/messages?before=9", nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /read", func() {
		It("reports how many messages were marked", func() {
			api.messages.markReadFn = func(_ context.Context, conv, reader string) (int64, error) {
				Expect(conv).To(Equal(convID))
				Expect(reader).To(Equal(api.userID))
				return 3, nil
			}

			w := api.do(http.MethodPost, base+"/read", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["updated"]).To(BeNumerically("==", 3))
		})
	})

	Describe("presence", func() {
		It("requires the online flag", func() {
			w := api.do(http.MethodPut, base+"/presence", map[string]any{})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("sets the caller offline", func() {
			var got *bool
			api.presence.setOnlineFn = func(_ context.Context, _, _ string, online bool) error {
				got = &online
				return nil
			}

			w := api.do(http.MethodPut, base+"/presence", map[string]any{"online": false})

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(got).NotTo(BeNil())
			Expect(*got).To(BeFalse())
		})

		It("lists peers", func() {
			peer := uuid.NewString()
			api.presence.peersFn = func(context.Context, string, string) ([]presence.PeerStatus, error) {
				return []presence.PeerStatus{{UserID: peer, Online: true, LastSeen: time.Now()}}, nil
			}

			w := api.do(http.MethodGet, base+"/presence", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			peers := decode(w)["peers"].([]any)
			Expect(peers).To(HaveLen(1))
			Expect(peers[0].(map[string]any)["user_id"]).To(Equal(peer))
		})
	})

	Describe("live location", func() {
		It("starts sharing with the requested duration", func() {
			var gotDuration time.Duration
			api.locations.startFn = func(_ context.Context, _, _ string, lat, lng float64, d time.Duration) (*models.LiveLocation, error) {
				gotDuration = d
				return &models.LiveLocation{Latitude: lat, Longitude: lng, IsSharing: true}, nil
			}

			w := api.do(http.MethodPost, base+"/location", map[string]any{"latitude": 0, "longitude": 0, "duration_minutes": 15})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(gotDuration).To(Equal(15 * time.Minute))
		})

		It("rejects out-of-range durations before they reach the service", func() {
			called := false
			api.locations.startFn = func(context.Context, string, string, float64, float64, time.Duration) (*models.LiveLocation, error) {
				called = true
				return &models.LiveLocation{}, nil
			}

			for _, minutes := range []int64{481, -1, 153722867280912930, -153722867280912930} {
				w := api.do(http.MethodPost, base+"/location", map[string]any{"latitude": 0, "longitude": 0, "duration_minutes": minutes})
				Expect(w.Code).To(Equal(http.StatusBadRequest), "minutes %d", minutes)
			}
			Expect(called).To(BeFalse())
		})

		It("accepts the maximum duration", func() {
			var got time.Duration
			api.locations.startFn = func(_ context.Context, _, _ string, _, _ float64, d time.Duration) (*models.LiveLocation, error) {
				got = d
				return &models.LiveLocation{}, nil
			}

			w := api.do(http.MethodPost, base+"/location", map[string]any{"latitude": 0, "longitude": 0, "duration_minutes": 480})
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got).To(Equal(config.MaxShareDuration))
		})

		It("requires coordinates", func() {
			w := api.do(http.MethodPost, base+"/location", map[string]any{"latitude": 1})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when updating a session that is not live", func() {
			api.locations.updateFn = func(context.Context, string, string, float64, float64) (*models.LiveLocation, error) {
				return nil, fmt.Errorf("live location: %w", apperr.ErrNotFound)
			}

			w := api.do(http.MethodPatch, base+"/location", map[string]any{"latitude": 1, "longitude": 2})

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("stops idempotently", func() {
			w := api.do(http.MethodDelete, base+"/location", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["stopped"]).To(BeFalse())
		})

		It("lists live sessions", func() {
			api.locations.activeFn = func(context.Context, string, string) ([]models.LiveLocation, error) {
				return []models.LiveLocation{{UserID: "u", IsSharing: true}}, nil
			}

			w := api.do(http.MethodGet, base+"/locations", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["locations"]).To(HaveLen(1))
		})
	})
})
