package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updateTimeoutSeconds is the long-poll timeout passed to the Bot API.
const updateTimeoutSeconds = 30

// MenuCommand is one entry of the bot command menu registered at startup.
type MenuCommand struct {
	Command     string
	Description string
}

// MenuCommands is the fixed command list shown to users.
var MenuCommands = []MenuCommand{
	{Command: "start", Description: "Старт"},
	{Command: "new", Description: "Новый диалог"},
	{Command: "current", Description: "Показать текущий контекст"},
	{Command: "set", Description: "Задать свой контекст"},
	{Command: "reset", Description: "Сбросить контекст на начальное состояние"},
}

// Bot adapts the Telegram Bot API to the Messenger interface.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// BotOption configures the bot adapter.
type BotOption func(*Bot)

// WithBotLogger sets a custom logger.
func WithBotLogger(logger *slog.Logger) BotOption {
	return func(b *Bot) {
		b.logger = logger
	}
}

// NewBot creates a bot adapter authenticated with token.
func NewBot(token string, opts ...BotOption) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API client: %w", err)
	}

	b := &Bot{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Send delivers text with the bot's default HTML parse mode.
func (b *Bot) Send(_ context.Context, recipient int64, text string) error {
	msg := tgbotapi.NewMessage(recipient, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", recipient, err)
	}
	return nil
}

// SendMarkdown delivers text rendered as Markdown.
func (b *Bot) SendMarkdown(_ context.Context, recipient int64, text string) error {
	msg := tgbotapi.NewMessage(recipient, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", recipient, err)
	}
	return nil
}

// Subscribe starts long-polling for updates and converts them to
// IncomingMessage values. The returned channel closes when ctx is done.
func (b *Bot) Subscribe(ctx context.Context) (<-chan IncomingMessage, error) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(cfg)
	out := make(chan IncomingMessage)

	go func() {
		defer close(out)
		defer b.api.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := convertUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// RegisterCommands publishes the command menu. Called once at startup.
func (b *Bot) RegisterCommands() error {
	commands := make([]tgbotapi.BotCommand, 0, len(MenuCommands))
	for _, c := range MenuCommands {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     c.Command,
			Description: c.Description,
		})
	}

	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("failed to register bot commands: %w", err)
	}
	return nil
}

// Username returns the authenticated bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

func convertUpdate(update tgbotapi.Update) (IncomingMessage, bool) {
	if update.Message == nil || update.Message.From == nil {
		return IncomingMessage{}, false
	}
	if update.Message.Text == "" {
		return IncomingMessage{}, false
	}

	return IncomingMessage{
		Identity:  update.Message.From.ID,
		Username:  update.Message.From.UserName,
		Text:      update.Message.Text,
		Timestamp: update.Message.Time(),
	}, true
}
