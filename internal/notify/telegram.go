package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Telegram sends Notifier messages to a single chat via the Telegram
// Bot API. Grounded on web3guy0-polybot's bot/telegram.go TelegramBot —
// adapted down to the bare send/sendMarkdown surface Notifier needs,
// dropping the bot's inbound command loop and stats-provider callbacks
// since this engine has no interactive control surface — Notifier is
// send-only.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Entry
}

// NewTelegram returns a Telegram notifier authenticated with token,
// posting every message to chatID.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: creating telegram bot: %w", err)
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		logger: logrus.WithField("component", "notify.telegram"),
	}, nil
}

// Send posts text to the configured chat once, without retrying: a
// delivery failure is logged and also returned to the caller.
func (t *Telegram) Send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.api.Send(msg); err != nil {
		t.logger.WithError(err).Warn("failed to send telegram message")
		return fmt.Errorf("notify: sending telegram message: %w", err)
	}
	return nil
}
