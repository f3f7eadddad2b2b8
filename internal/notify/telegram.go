package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"neutron-agent/internal/core/ports"
)

// Telegram sends operator notifications to a single chat.
type Telegram struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

var _ ports.Notifier = (*Telegram)(nil)

func NewTelegram(token string, chatIDStr string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(bot, chatIDStr)
}

// NewTelegramWithEndpoint targets a custom Bot API endpoint, e.g. "http://host/bot%s/%s".
func NewTelegramWithEndpoint(token, endpoint string, client tgbotapi.HTTPClient, chatIDStr string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return newTelegram(bot, chatIDStr)
}

func newTelegram(bot *tgbotapi.BotAPI, chatIDStr string) (*Telegram, error) {
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id: %v", err)
	}
	return &Telegram{Bot: bot, ChatID: chatID}, nil
}

// Notify sends a Markdown message with a bold title.
func (t *Telegram) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.ChatID, FormatMessage(title, body))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func FormatMessage(title, body string) string {
	return fmt.Sprintf("*[%s]*\n\n%s", escapeMarkdown(title), escapeMarkdown(body))
}

// escapeMarkdown keeps user text from breaking Telegram's legacy Markdown parser.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
