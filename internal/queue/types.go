// Package queue serializes inbound events per identity: messages from one
// user are processed strictly in arrival order while different users are
// handled concurrently by the worker pool.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/artyone/relaybot/internal/telegram"
)

// Message is one inbound event flowing through the queue.
type Message struct {
	Timestamp time.Time
	QueuedAt  time.Time
	ID        string
	Username  string
	Text      string
	Identity  int64
}

// NewMessage wraps a transport event for queueing.
func NewMessage(msg telegram.IncomingMessage) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Identity:  msg.Identity,
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		QueuedAt:  time.Now(),
	}
}

// Incoming converts the message back to a transport event for the router.
func (m *Message) Incoming() telegram.IncomingMessage {
	return telegram.IncomingMessage{
		Identity:  m.Identity,
		Username:  m.Username,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}
