// Package telegram connects the bot router to the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/bot"
	"ledgerbot/internal/log"
)

// API is the subset of *tgbotapi.BotAPI the transport uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler answers one chat message.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message) (bot.Reply, bool)
}

type Transport struct {
	api         API
	handler     Handler
	pollTimeout int
	logger      *log.Logger
}

// Connect authenticates with the Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

func NewTransport(api API, handler Handler, pollTimeout int, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Transport{
		api:         api,
		handler:     handler,
		pollTimeout: pollTimeout,
		logger:      logger.WithComponent(log.ComponentBot),
	}
}

// Run polls for updates until ctx is done. Messages are handled one at a
// time in arrival order.
func (t *Transport) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(cfg)
	t.logger.InfoContext(ctx, "Polling for Telegram updates", "timeout", t.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.logger.InfoContext(ctx, "Stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handle(ctx, update)
		}
	}
}

func (t *Transport) handle(ctx context.Context, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Chat == nil || m.From == nil || m.Text == "" {
		return
	}
	reply, ok := t.handler.Handle(ctx, bot.Message{ChatID: m.Chat.ID, UserID: m.From.ID, Text: m.Text})
	if !ok {
		return
	}
	if _, err := t.api.Send(NewReply(m.Chat.ID, reply)); err != nil {
		t.logger.ErrorContext(ctx, "Failed to send reply", log.FieldSessionID, m.Chat.ID, log.FieldError, err)
	}
}

// NewReply builds the outgoing message, including the reply keyboard.
func NewReply(chatID int64, reply bot.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	switch {
	case len(reply.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Keyboard))
		for _, row := range reply.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		msg.ReplyMarkup = kb
	case reply.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return msg
}
