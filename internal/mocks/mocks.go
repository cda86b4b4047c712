// Package mocks provides shared test doubles for the core interfaces.
package mocks

import (
	"context"
	"sync"

	"github.com/artyone/relaybot/internal/audit"
	"github.com/artyone/relaybot/internal/session"
	"github.com/artyone/relaybot/internal/telegram"
)

// Completer is a scripted llm.Completer. If CompleteFunc is nil every call
// returns Reply.
type Completer struct {
	CompleteFunc func(ctx context.Context, turns []session.Turn) (string, error)
	Reply        string

	mu       sync.Mutex
	requests [][]session.Turn
}

// Complete records the request and returns the scripted reply.
func (c *Completer) Complete(ctx context.Context, turns []session.Turn) (string, error) {
	c.mu.Lock()
	captured := make([]session.Turn, len(turns))
	copy(captured, turns)
	c.requests = append(c.requests, captured)
	c.mu.Unlock()

	if c.CompleteFunc != nil {
		return c.CompleteFunc(ctx, turns)
	}
	return c.Reply, nil
}

// Requests returns every captured request payload, in call order.
func (c *Completer) Requests() [][]session.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]session.Turn, len(c.requests))
	copy(out, c.requests)
	return out
}

// SentMessage records one outbound send.
type SentMessage struct {
	Recipient int64
	Text      string
	Markdown  bool
}

// Messenger records outbound sends and serves a scripted inbound channel.
type Messenger struct {
	SendFunc func(ctx context.Context, recipient int64, text string) error
	Incoming chan telegram.IncomingMessage

	mu   sync.Mutex
	sent []SentMessage
}

// Send records a plain send.
func (m *Messenger) Send(ctx context.Context, recipient int64, text string) error {
	return m.record(ctx, recipient, text, false)
}

// SendMarkdown records a Markdown send.
func (m *Messenger) SendMarkdown(ctx context.Context, recipient int64, text string) error {
	return m.record(ctx, recipient, text, true)
}

func (m *Messenger) record(ctx context.Context, recipient int64, text string, markdown bool) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, recipient, text); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{Recipient: recipient, Text: text, Markdown: markdown})
	return nil
}

// Subscribe returns the scripted inbound channel.
func (m *Messenger) Subscribe(_ context.Context) (<-chan telegram.IncomingMessage, error) {
	if m.Incoming == nil {
		m.Incoming = make(chan telegram.IncomingMessage)
	}
	return m.Incoming, nil
}

// Sent returns every recorded outbound message, in send order.
func (m *Messenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Recorder is an in-memory audit.Recorder.
type Recorder struct {
	RecordFunc func(entry audit.Entry) error

	mu      sync.Mutex
	entries []audit.Entry
}

// Record captures the entry.
func (r *Recorder) Record(entry audit.Entry) error {
	if r.RecordFunc != nil {
		if err := r.RecordFunc(entry); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns every captured entry, in write order.
func (r *Recorder) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]audit.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
