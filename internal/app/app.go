// Package app wires the realtime services together.
package app

import (
	"givebox/backend/internal/api/handler"
	"givebox/backend/internal/api/middleware"
	"givebox/backend/internal/api/router"
	"givebox/backend/internal/auth"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"
	"givebox/backend/internal/gate"
	"givebox/backend/internal/livelocation"
	"givebox/backend/internal/notify"
	"givebox/backend/internal/presence"
	"givebox/backend/internal/push"
	"givebox/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

type ServicesConfig struct {
	Config config.Config
	DB     *gorm.DB
	// Redis may be nil; link codes are then unavailable.
	Redis *redis.Client
	// Feed carries row changes from storage to websocket subscribers.
	Feed chathub.Feed
	// Sender delivers pushes. Nil means no channel is configured.
	Sender push.Sender
}

type Services struct {
	Config     config.Config
	Store      *storage.Service
	Feed       chathub.Feed
	Gate       *gate.Gate
	Chat       *chat.Service
	Presence   *presence.Tracker
	Locations  *livelocation.Sessions
	Dispatcher *notify.Dispatcher
	Hub        *chathub.ManagerService
	Issuer     *auth.Issuer
}

func NewServices(cfg ServicesConfig) *Services {
	sender := cfg.Sender
	if sender == nil {
		sender = push.Router{}
	}

	store := storage.NewStorageService(cfg.DB, cfg.Redis, cfg.Feed)
	g := gate.New(store, cfg.Config.AuditTimeout)
	chatSvc := chat.NewService(store, g, cfg.Feed)
	tracker := presence.NewTracker(store, g, cfg.Config.Presence.StaleAfter)

	return &Services{
		Config:     cfg.Config,
		Store:      store,
		Feed:       cfg.Feed,
		Gate:       g,
		Chat:       chatSvc,
		Presence:   tracker,
		Locations:  livelocation.NewSessions(store, g, chatSvc),
		Dispatcher: notify.NewDispatcher(store, g, sender, cfg.Config.PublicAppURL),
		Hub:        chathub.NewManagerService(cfg.Feed, g, tracker),
		Issuer:     auth.NewIssuer(cfg.Config.JWT),
	}
}

// Handler builds the HTTP handler set. botUsername is empty when the
// Telegram bot is not running.
func (s *Services) Handler(botUsername string) *handler.Handler {
	return handler.NewHandler(handler.Services{
		Messages:            s.Chat,
		Presence:            s.Presence,
		Locations:           s.Locations,
		Notifier:            s.Dispatcher,
		Notifications:       s.Store,
		Push:                s.Store,
		Requests:            s.Store,
		Tokens:              s.Issuer,
		Hub:                 s.Hub,
		VAPIDPublicKey:      s.Config.WebPush.PublicKey,
		TelegramBotUsername: botUsername,
	})
}

// Router returns the gin engine serving every route.
func (s *Services) Router(botUsername string) *gin.Engine {
	engine := gin.New()
	if s.Config.OTel.Enabled() {
		engine.Use(otelgin.Middleware(s.Config.OTel.ServiceName))
	}
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	router.SetupRoutes(engine, s.Handler(botUsername), s.Issuer)
	return engine
}

// Shutdown releases the live clients, which marks their users offline, then
// waits for the audit writes those last decisions started. Call it after the
// HTTP server stopped accepting requests.
func (s *Services) Shutdown() {
	s.Hub.Shutdown()
	s.Gate.Close()
}
