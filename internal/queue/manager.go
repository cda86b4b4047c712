package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artyone/relaybot/internal/telegram"
)

const (
	incomingBuffer = 100
	requestBuffer  = 10
	submitTimeout  = 5 * time.Second
)

// Manager owns the per-identity queues and hands messages to workers with
// fair round-robin scheduling across identities. All queue state is owned
// by the Start loop; callers communicate over channels, so no lock is held
// across a backend call.
type Manager struct {
	ctx        context.Context
	cancel     context.CancelFunc
	queues     map[int64]*identityQueue
	order      []int64
	current    int
	incomingCh chan *Message
	requestCh  chan chan *Message
	completeCh chan *Message
	waiting    []chan *Message
	started    chan struct{}
	logger     *slog.Logger
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets a custom logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a queue manager bound to ctx.
func NewManager(ctx context.Context, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(ctx)

	m := &Manager{
		ctx:        ctx,
		cancel:     cancel,
		queues:     make(map[int64]*identityQueue),
		incomingCh: make(chan *Message, incomingBuffer),
		requestCh:  make(chan chan *Message, requestBuffer),
		completeCh: make(chan *Message, requestBuffer),
		started:    make(chan struct{}),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start runs the scheduling loop until the context is canceled. It should
// be called in its own goroutine.
func (m *Manager) Start() {
	close(m.started)

	for {
		select {
		case <-m.ctx.Done():
			m.drainWaiting()
			return

		case msg := <-m.incomingCh:
			if err := m.enqueue(msg); err != nil {
				m.logger.Error("failed to enqueue message",
					"identity", msg.Identity,
					"error", err)
				continue
			}
			m.dispatchWaiting()

		case respCh := <-m.requestCh:
			if msg := m.nextMessage(); msg != nil {
				respCh <- msg
			} else {
				m.waiting = append(m.waiting, respCh)
			}

		case msg := <-m.completeCh:
			if q, ok := m.queues[msg.Identity]; ok {
				q.Complete()
			}
			m.dispatchWaiting()
		}
	}
}

// WaitForReady blocks until the scheduling loop is running.
func (m *Manager) WaitForReady() {
	<-m.started
}

// Stop cancels the scheduling loop.
func (m *Manager) Stop() {
	m.cancel()
}

// Enqueue implements telegram.MessageEnqueuer.
func (m *Manager) Enqueue(msg telegram.IncomingMessage) error {
	return m.Submit(NewMessage(msg))
}

// Submit adds a message for processing.
func (m *Manager) Submit(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("cannot submit nil message")
	}

	select {
	case m.incomingCh <- msg:
		return nil
	case <-m.ctx.Done():
		return fmt.Errorf("queue manager shutting down")
	case <-time.After(submitTimeout):
		return fmt.Errorf("timeout submitting message %s", msg.ID)
	}
}

// RequestMessage blocks until a message is available, the caller's context
// is done, or the manager shuts down. A nil message means shutdown.
func (m *Manager) RequestMessage(ctx context.Context) (*Message, error) {
	respCh := make(chan *Message, 1)

	select {
	case m.requestCh <- respCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ctx.Done():
		return nil, nil
	}

	select {
	case msg := <-respCh:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ctx.Done():
		return nil, nil
	}
}

// Complete marks a dequeued message as processed, releasing the identity's
// next message for dispatch.
func (m *Manager) Complete(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("cannot complete nil message")
	}

	select {
	case m.completeCh <- msg:
		return nil
	case <-m.ctx.Done():
		return nil
	}
}

// enqueue routes the message to its identity queue, creating it on demand.
// Only called from the Start loop.
func (m *Manager) enqueue(msg *Message) error {
	q, ok := m.queues[msg.Identity]
	if !ok {
		q = newIdentityQueue(msg.Identity)
		m.queues[msg.Identity] = q
		m.order = append(m.order, msg.Identity)
	}
	return q.Enqueue(msg)
}

// nextMessage scans identities round-robin starting after the last served
// one, so a chatty user cannot starve the others.
func (m *Manager) nextMessage() *Message {
	if len(m.order) == 0 {
		return nil
	}

	for i := 0; i < len(m.order); i++ {
		idx := (m.current + 1 + i) % len(m.order)
		if msg := m.queues[m.order[idx]].Dequeue(); msg != nil {
			m.current = idx
			return msg
		}
	}
	return nil
}

// dispatchWaiting pairs waiting workers with available messages.
func (m *Manager) dispatchWaiting() {
	for len(m.waiting) > 0 {
		msg := m.nextMessage()
		if msg == nil {
			return
		}
		respCh := m.waiting[0]
		m.waiting = m.waiting[1:]
		respCh <- msg
	}
}

// drainWaiting tells parked workers to shut down.
func (m *Manager) drainWaiting() {
	for _, respCh := range m.waiting {
		respCh <- nil
	}
	m.waiting = nil
}
