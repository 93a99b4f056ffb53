package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"time"

	"givebox/backend/internal/api/handler"
	"givebox/backend/internal/api/router"
	"givebox/backend/internal/auth"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
)

type testAPI struct {
	engine *gin.Engine
	issuer *auth.Issuer
	feed   *chathub.MemoryFeed
	hub    *chathub.ManagerService
	userID string
	token  string

	messages      *mockMessageService
	presence      *mockPresenceService
	locations     *mockLocationService
	notifier      *mockNotifier
	notifications *mockNotificationStore
	push          *mockPushRegistry
	requests      *mockRequestStore
}

func newTestAPI() *testAPI {
	gin.SetMode(gin.TestMode)
	api := &testAPI{
		issuer:        auth.NewIssuer(config.JWTConfig{Secret: "handler-secret", Issuer: "givebox", TTL: time.Hour}),
		feed:          chathub.NewMemoryFeed(),
		userID:        uuid.NewString(),
		messages:      &mockMessageService{},
		presence:      &mockPresenceService{},
		locations:     &mockLocationService{},
		notifier:      &mockNotifier{},
		notifications: &mockNotificationStore{},
		push:          &mockPushRegistry{},
		requests:      &mockRequestStore{},
	}
	api.hub = chathub.NewManagerService(api.feed, allowAll{}, nopPresence{})
	token, err := api.issuer.Issue(api.userID)
	Expect(err).NotTo(HaveOccurred())
	api.token = token

	h := handler.NewHandler(handler.Services{
		Messages:            api.messages,
		Presence:            api.presence,
		Locations:           api.locations,
		Notifier:            api.notifier,
		Notifications:       api.notifications,
		Push:                api.push,
		Requests:            api.requests,
		Tokens:              api.issuer,
		Hub:                 api.hub,
		VAPIDPublicKey:      "BPublicKey",
		TelegramBotUsername: "giveboxbot",
	})
	api.engine = gin.New()
	router.SetupRoutes(api.engine, h, api.issuer)
	return api
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	return a.doAs(a.token, method, path, body)
}

func (a *testAPI) doAs(token, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			Expect(json.NewEncoder(&buf).Encode(b)).To(Succeed())
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

