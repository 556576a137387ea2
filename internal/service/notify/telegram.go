package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applogger "CoinScout/pkg/logger"
)

// MaxMessageLength is the Telegram limit for a single message.
const MaxMessageLength = 4096

// Sender is the part of tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers alerts to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
	l      *applogger.Logger
}

// NewTelegram authenticates the bot token and returns a notifier for chatID.
func NewTelegram(token string, chatID int64, l *applogger.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	l.Info("telegram notifier ready", applogger.String("bot", bot.Self.UserName))
	return NewTelegramWithSender(bot, chatID, l), nil
}

func NewTelegramWithSender(bot Sender, chatID int64, l *applogger.Logger) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, l: l}
}

// Notify sends text, splitting it on line boundaries when it is too long.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for i, part := range splitMessage(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, part)); err != nil {
			return fmt.Errorf("telegram send part %d: %w", i+1, err)
		}
	}
	return nil
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			flush()
			parts = append(parts, line[:maxLen])
			line = line[maxLen:]
		}
		extra := len(line)
		if current.Len() > 0 {
			extra++
		}
		if current.Len()+extra > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return parts
}
