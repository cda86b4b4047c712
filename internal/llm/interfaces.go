// Package llm provides the interface to the chat-completion backend.
package llm

import (
	"context"

	"github.com/artyone/relaybot/internal/session"
)

// Completer abstracts the completion backend. The request is an ordered
// list of role-tagged turns; the reply is a single assistant text.
type Completer interface {
	Complete(ctx context.Context, turns []session.Turn) (string, error)
}
