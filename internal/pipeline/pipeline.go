// Package pipeline assembles completion requests, invokes the backend and
// commits the resulting exchange to session history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artyone/relaybot/internal/audit"
	"github.com/artyone/relaybot/internal/llm"
	"github.com/artyone/relaybot/internal/session"
)

// Request identifies the inbound turn being completed.
type Request struct {
	Timestamp time.Time
	Username  string
	Text      string
	Identity  session.Identity
}

// Pipeline runs a single completion attempt per inbound message.
type Pipeline struct {
	completer llm.Completer
	recorder  audit.Recorder
	logger    *slog.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline. Both the completer and the audit recorder are
// required collaborators.
func New(completer llm.Completer, recorder audit.Recorder, opts ...Option) (*Pipeline, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}

	p := &Pipeline{
		completer: completer,
		recorder:  recorder,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Complete sends the session context, the windowed history and the new user
// turn to the backend. On success both the user turn and the reply are
// appended to history as one unit; on failure history is left untouched.
// The inbound audit line is written before the call, the outbound line after.
func (p *Pipeline) Complete(ctx context.Context, sess *session.Session, req Request) (string, error) {
	p.record(audit.Entry{
		Timestamp: req.Timestamp,
		Direction: audit.Inbound,
		Identity:  int64(req.Identity),
		Username:  req.Username,
		Text:      req.Text,
	})

	userTurn := session.Turn{Role: session.RoleUser, Content: req.Text}

	// Context + at most the last 20 turns counting the new user turn:
	// never more than 21 entries on the wire.
	window := sess.WindowTail(session.HistoryWindow - 1)
	turns := make([]session.Turn, 0, len(window)+2)
	turns = append(turns, sess.Context())
	turns = append(turns, window...)
	turns = append(turns, userTurn)

	reply, err := p.completer.Complete(ctx, turns)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	sess.AppendExchange(userTurn, session.Turn{Role: session.RoleAssistant, Content: reply})

	p.record(audit.Entry{
		Timestamp: time.Now(),
		Direction: audit.Outbound,
		Identity:  int64(req.Identity),
		Username:  req.Username,
		Text:      reply,
	})

	return reply, nil
}

// record writes an audit line best-effort. A failing sink is logged and
// never interrupts the response path.
func (p *Pipeline) record(entry audit.Entry) {
	if err := p.recorder.Record(entry); err != nil {
		p.logger.Warn("audit write failed",
			"direction", string(entry.Direction),
			"identity", entry.Identity,
			"error", err)
	}
}
