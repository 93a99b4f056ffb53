package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger is the part of the bot API used for delivery.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers pushes as bot messages. The registration endpoint is
// the chat ID.
type Telegram struct {
	Bot Messenger
}

func (t *Telegram) Send(_ context.Context, reg models.PushRegistration, msg Message) error {
	chatID, err := strconv.ParseInt(reg.Endpoint, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", reg.Endpoint, ErrGone)
	}

	text := msg.Title + "\n\n" + msg.Body
	if msg.URL != "" {
		text += "\n" + msg.URL
	}
	out := tgbotapi.NewMessage(chatID, text)
	if _, err := t.Bot.Send(out); err != nil {
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && chatGone(tgErr) {
			return fmt.Errorf("telegram %d: %w", tgErr.Code, ErrGone)
		}
		return apperr.Upstream("telegram send", err)
	}
	return nil
}

// chatGone reports errors after which the chat can never be reached again.
func chatGone(err *tgbotapi.Error) bool {
	if err.Code == 403 {
		return true
	}
	return err.Code == 400 && strings.Contains(strings.ToLower(err.Message), "chat not found")
}
