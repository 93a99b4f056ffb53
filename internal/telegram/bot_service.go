// Package telegram runs the bot users talk to when linking a Telegram chat
// as a push destination.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"givebox/backend/internal/localization"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LinkStore is the storage the bot needs.
type LinkStore interface {
	ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error)
	SavePushRegistration(ctx context.Context, reg *models.PushRegistration) error
	GetPushRegistrationByEndpoint(ctx context.Context, endpoint string) (*models.PushRegistration, error)
	DeletePushRegistration(ctx context.Context, id string) error
}

// Messenger is the part of the bot API the command handlers reply through.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotService receives Telegram updates and dispatches bot commands.
type BotService struct {
	BotAPI *tgbotapi.BotAPI
	Store  LinkStore
}

func NewBotService(token string, store LinkStore) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = false
	slog.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &BotService{BotAPI: bot, Store: store}, nil
}

// Username is the bot handle used to build t.me deep links.
func (s *BotService) Username() string {
	return s.BotAPI.Self.UserName
}

// Run long-polls for updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "givebox.telegram.bot"})
	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			slog.InfoContext(ctx, "telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleUpdate(ctx, &update, s.Store, s.BotAPI)
		}
	}
}

// HandleUpdate routes one update. Anything other than /start and /stop gets
// the help text.
func HandleUpdate(ctx context.Context, update *tgbotapi.Update, store LinkStore, bot Messenger) {
	if update.Message == nil {
		return
	}
	if !update.Message.IsCommand() {
		reply(ctx, bot, update.Message, helpText)
		return
	}

	switch update.Message.Command() {
	case "start":
		HandleStartCommand(ctx, update, store, bot)
	case "stop":
		HandleStopCommand(ctx, update, store, bot)
	default:
		reply(ctx, bot, update.Message, helpText)
	}
}

// reply answers msg with the text for key in the sender's language.
func reply(ctx context.Context, bot Messenger, msg *tgbotapi.Message, key string) {
	var lang string
	if msg.From != nil {
		lang = msg.From.LanguageCode
	}
	text := localization.Default().GetString(lang, key)
	if _, err := bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		slog.WarnContext(ctx, "telegram reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}
