package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
)

// Telegram posts alerts to a single chat through a bot.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegram returns nil, nil when the token or chat is not configured.
func NewTelegram(token string, chatID int64, opts ...bot.Option) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	if t == nil || t.bot == nil {
		return errors.New("telegram disabled")
	}
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   title + "\n" + text,
	})
	return err
}
