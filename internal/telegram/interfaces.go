// Package telegram provides the Telegram transport integration.
package telegram

import "context"

// Messenger abstracts outbound delivery and inbound subscription. The
// dispatch core depends only on this interface, never on the bot API.
type Messenger interface {
	// Send delivers text to the recipient using the bot's default parse mode.
	Send(ctx context.Context, recipient int64, text string) error

	// SendMarkdown delivers text rendered as Markdown. Used for assistant
	// replies, which may contain simple markup.
	SendMarkdown(ctx context.Context, recipient int64, text string) error

	// Subscribe returns a channel of incoming messages.
	Subscribe(ctx context.Context) (<-chan IncomingMessage, error)
}
