// Package dispatch classifies inbound events against an ordered rule list
// and invokes exactly one handler per event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/artyone/relaybot/internal/llm"
	"github.com/artyone/relaybot/internal/pipeline"
	"github.com/artyone/relaybot/internal/session"
	"github.com/artyone/relaybot/internal/telegram"
)

// Router routes each inbound event. Rule order is fixed:
//
//  1. start command — registration, idempotent for known identities.
//  2. unregistered sender — registration prompt, no state mutation.
//  3. recognized command — state machine transition. Commands win over
//     settings capture even while awaiting settings input.
//  4. awaiting settings + text — the text becomes the new context.
//  5. idle + text — completion pipeline.
//  6. fallback — fixed unauthorized/unmatched reply.
type Router struct {
	registry  *session.Registry
	pipeline  *pipeline.Pipeline
	messenger telegram.Messenger
	logger    *slog.Logger
	adminID   session.Identity
}

// Option configures the router.
type Option func(*Router)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router. The admin identity receives a one-shot
// notification for every newly registered user.
func NewRouter(
	registry *session.Registry,
	pipe *pipeline.Pipeline,
	messenger telegram.Messenger,
	adminID session.Identity,
	opts ...Option,
) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if pipe == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}

	r := &Router{
		registry:  registry,
		pipeline:  pipe,
		messenger: messenger,
		adminID:   adminID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Handle processes one inbound event. Events for the same identity must be
// serialized by the caller; the queue guarantees that.
func (r *Router) Handle(ctx context.Context, msg telegram.IncomingMessage) error {
	identity := session.Identity(msg.Identity)
	cmd, isCommand := ParseCommand(msg.Text)

	if isCommand && cmd == CommandStart {
		return r.handleStart(ctx, msg, identity)
	}

	sess, err := r.registry.Get(identity)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return r.send(ctx, msg.Identity, replyRegisterPrompt)
		}
		return err
	}

	if isCommand {
		return r.handleCommand(ctx, msg, identity, sess, cmd)
	}

	if strings.TrimSpace(msg.Text) == "" {
		return r.send(ctx, msg.Identity, replyUnauthorized)
	}

	if sess.State() == session.StateAwaitingSettings {
		return r.handleSettingsCapture(ctx, msg, identity, sess)
	}

	return r.handleCompletion(ctx, msg, sess)
}

// handleStart registers the sender (idempotently), forces the state machine
// to idle and notifies the admin about first-time registrations.
func (r *Router) handleStart(ctx context.Context, msg telegram.IncomingMessage, identity session.Identity) error {
	sess, created := r.registry.Register(identity)
	sess.SetState(session.StateIdle)

	if created {
		r.logger.Info("new user registered", "identity", msg.Identity, "username", msg.Username)
		notice := fmt.Sprintf(adminJoinedNotice, msg.Identity, msg.Username)
		if err := r.messenger.Send(ctx, int64(r.adminID), notice); err != nil {
			// Delivery of the admin notice must not block the welcome.
			r.logger.Warn("failed to notify admin", "error", err)
		}
	}

	return r.send(ctx, msg.Identity, replyWelcome)
}

func (r *Router) handleCommand(
	ctx context.Context,
	msg telegram.IncomingMessage,
	identity session.Identity,
	sess *session.Session,
	cmd Command,
) error {
	switch cmd {
	case CommandReset:
		if err := r.registry.ResetContext(identity); err != nil {
			return err
		}
		sess.SetState(session.StateIdle)
		return r.send(ctx, msg.Identity, replyContextReset)

	case CommandNew:
		if err := r.registry.ClearHistory(identity); err != nil {
			return err
		}
		sess.SetState(session.StateIdle)
		return r.send(ctx, msg.Identity, replyNewDialog)

	case CommandCurrent:
		sess.SetState(session.StateIdle)
		text := fmt.Sprintf(replyCurrentContext, html.EscapeString(sess.Context().Content))
		return r.send(ctx, msg.Identity, text)

	case CommandSet:
		if err := r.send(ctx, msg.Identity, replySettingsPrompt); err != nil {
			return err
		}
		last := fmt.Sprintf(replyLastContext, html.EscapeString(sess.Context().Content))
		if err := r.send(ctx, msg.Identity, last); err != nil {
			return err
		}
		sess.SetState(session.StateAwaitingSettings)
		return nil

	case CommandStart:
		// Handled before registry lookup; unreachable here.
		return nil

	default:
		return r.send(ctx, msg.Identity, replyUnauthorized)
	}
}

// handleSettingsCapture consumes the next text message as the new context.
func (r *Router) handleSettingsCapture(
	ctx context.Context,
	msg telegram.IncomingMessage,
	identity session.Identity,
	sess *session.Session,
) error {
	if err := r.registry.SetContext(identity, msg.Text); err != nil {
		return err
	}
	sess.SetState(session.StateIdle)
	return r.send(ctx, msg.Identity, replySettingsAccepted)
}

func (r *Router) handleCompletion(ctx context.Context, msg telegram.IncomingMessage, sess *session.Session) error {
	reply, err := r.pipeline.Complete(ctx, sess, pipeline.Request{
		Identity:  session.Identity(msg.Identity),
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		if errors.Is(err, llm.ErrBackendUnavailable) {
			r.logger.Error("backend unavailable", "identity", msg.Identity, "error", err)
			return r.send(ctx, msg.Identity, replyBackendFailure)
		}
		return err
	}

	if err := r.messenger.SendMarkdown(ctx, msg.Identity, reply); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	return nil
}

func (r *Router) send(ctx context.Context, recipient int64, text string) error {
	if err := r.messenger.Send(ctx, recipient, text); err != nil {
		return fmt.Errorf("failed to send reply to %d: %w", recipient, err)
	}
	return nil
}
