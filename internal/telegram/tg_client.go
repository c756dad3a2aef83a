// Package telegram delivers notifications to users who linked a Telegram chat.
package telegram

import (
	"context"
	"fmt"

	"hostelgrievance/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the sender needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client sends notification messages through the Bot API.
type Client struct {
	BotAPI BotAPI
}

// NewClient authorizes the bot with token.
func NewClient(token string) (*Client, string, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, "", err
	}
	bot.Debug = false
	return &Client{BotAPI: bot}, bot.Self.UserName, nil
}

func (c *Client) Name() string { return "telegram" }

// Deliver sends n to the recipient's linked chat. Users without a chat are skipped.
func (c *Client) Deliver(ctx context.Context, recipient *models.User, n *models.Notification) error {
	if recipient == nil || recipient.TelegramChatID == nil || *recipient.TelegramChatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(*recipient.TelegramChatID, n.Message)
	msg.LinkPreviewOptions = tgbotapi.LinkPreviewOptions{IsDisabled: true}
	if _, err := c.BotAPI.Send(msg); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", *recipient.TelegramChatID, err)
	}
	return nil
}
