// Package session owns per-user conversation state: the system context,
// the bounded history window and the command state that decides how the
// next inbound message is interpreted.
package session

import "sync"

// HistoryWindow is the maximum number of turns kept and sent per request.
const HistoryWindow = 20

// Role tags a turn with its conversational author.
type Role string

const (
	// RoleSystem marks the instruction prefix turn.
	RoleSystem Role = "system"
	// RoleUser marks a turn sent by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the completion backend.
	RoleAssistant Role = "assistant"
)

// Turn is one immutable role-tagged message of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// CommandState governs how the next inbound text is interpreted.
type CommandState int

const (
	// StateIdle is the initial state; plain text goes to the completion pipeline.
	StateIdle CommandState = iota
	// StateAwaitingSettings means the next text message replaces the context.
	StateAwaitingSettings
)

// String returns a human-readable state name.
func (s CommandState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSettings:
		return "awaiting-settings"
	default:
		return "unknown"
	}
}

// Session holds one user's conversation state. All accessors are safe for
// concurrent use; the dispatch queue additionally serializes whole handlers
// per identity.
type Session struct {
	context Turn
	history []Turn
	state   CommandState
	mu      sync.Mutex
}

func newSession(defaultContext string) *Session {
	return &Session{
		// Value copy: mutating one session's context can never alias another's.
		context: Turn{Role: RoleSystem, Content: defaultContext},
		state:   StateIdle,
	}
}

// Context returns the current instruction prefix turn.
func (s *Session) Context() Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.context
}

// State returns the current command state.
func (s *Session) State() CommandState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// SetState transitions the command state machine.
func (s *Session) SetState(state CommandState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

// Window returns a copy of at most the last HistoryWindow turns, oldest first.
func (s *Session) Window() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyTail(s.history, HistoryWindow)
}

// WindowTail returns a copy of at most the last n turns, oldest first.
// Used by the completion pipeline to leave room for the new user turn.
func (s *Session) WindowTail(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyTail(s.history, n)
}

// HistoryLen returns the number of retained turns.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.history)
}

// AppendExchange appends a user turn and the assistant's reply as one unit.
// The completion pipeline calls this only after a successful backend call,
// so history is never left with a user turn and no reply.
func (s *Session) AppendExchange(user, assistant Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, user, assistant)
	if len(s.history) > HistoryWindow {
		trimmed := make([]Turn, HistoryWindow)
		copy(trimmed, s.history[len(s.history)-HistoryWindow:])
		s.history = trimmed
	}
}

// Append adds a single turn to the history, trimming to the window bound.
func (s *Session) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, turn)
	if len(s.history) > HistoryWindow {
		trimmed := make([]Turn, HistoryWindow)
		copy(trimmed, s.history[len(s.history)-HistoryWindow:])
		s.history = trimmed
	}
}

func (s *Session) setContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.context = Turn{Role: RoleSystem, Content: text}
	s.history = nil
}

func (s *Session) clearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
}

func copyTail(turns []Turn, n int) []Turn {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
