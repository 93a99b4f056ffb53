package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Translation keys of the bot replies.
const (
	helpText     = "bot.help"
	linkedText   = "bot.linked"
	expiredText  = "bot.expired"
	failedText   = "bot.failed"
	unlinkedText = "bot.unlinked"
	notLinked    = "bot.not_linked"
)

// HandleStartCommand consumes the one-time code passed as /start <code> and
// registers the chat as a push destination of the code's owner.
func HandleStartCommand(ctx context.Context, update *tgbotapi.Update, store LinkStore, bot Messenger) {
	chatID := update.Message.Chat.ID
	code := strings.TrimSpace(update.Message.CommandArguments())
	if code == "" {
		reply(ctx, bot, update.Message, helpText)
		return
	}

	userID, err := store.ConsumeTelegramLinkCode(ctx, code)
	if errors.Is(err, apperr.ErrNotFound) {
		reply(ctx, bot, update.Message, expiredText)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "link code lookup failed", "chat_id", chatID, "error", err)
		reply(ctx, bot, update.Message, failedText)
		return
	}

	reg := &models.PushRegistration{
		UserID:   userID,
		Channel:  models.PushTelegram,
		Endpoint: strconv.FormatInt(chatID, 10),
	}
	if err := store.SavePushRegistration(ctx, reg); err != nil {
		slog.ErrorContext(ctx, "saving telegram registration failed", "chat_id", chatID, "user_id", userID, "error", err)
		reply(ctx, bot, update.Message, failedText)
		return
	}

	slog.InfoContext(ctx, "telegram chat linked", "chat_id", chatID, "user_id", userID)
	reply(ctx, bot, update.Message, linkedText)
}

// HandleStopCommand removes the registration of this chat.
func HandleStopCommand(ctx context.Context, update *tgbotapi.Update, store LinkStore, bot Messenger) {
	chatID := update.Message.Chat.ID
	reg, err := store.GetPushRegistrationByEndpoint(ctx, strconv.FormatInt(chatID, 10))
	if errors.Is(err, apperr.ErrNotFound) {
		reply(ctx, bot, update.Message, notLinked)
		return
	}
	if err == nil {
		err = store.DeletePushRegistration(ctx, reg.ID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "unlinking telegram chat failed", "chat_id", chatID, "error", err)
		reply(ctx, bot, update.Message, failedText)
		return
	}

	slog.InfoContext(ctx, "telegram chat unlinked", "chat_id", chatID, "user_id", reg.UserID)
	reply(ctx, bot, update.Message, unlinkedText)
}
