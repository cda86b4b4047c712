package dispatch

import "strings"

// Command is one of the fixed recognized command tokens.
type Command string

const (
	// CommandStart registers the sender and confirms the session.
	CommandStart Command = "start"
	// CommandReset restores the default context and clears history.
	CommandReset Command = "reset"
	// CommandNew clears history, leaving the context untouched.
	CommandNew Command = "new"
	// CommandCurrent reports the current context text.
	CommandCurrent Command = "current"
	// CommandSet enters settings capture for a new context.
	CommandSet Command = "set"
)

// ParseCommand extracts a recognized command from raw text. Only the first
// token is considered; an "@botname" mention suffix is stripped. Unknown
// slash-prefixed tokens are not commands and flow through as plain text.
func ParseCommand(text string) (Command, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", false
	}

	token := trimmed[1:]
	if i := strings.IndexAny(token, " \t\n"); i >= 0 {
		token = token[:i]
	}
	if i := strings.Index(token, "@"); i >= 0 {
		token = token[:i]
	}

	switch Command(token) {
	case CommandStart, CommandReset, CommandNew, CommandCurrent, CommandSet:
		return Command(token), true
	default:
		return "", false
	}
}
