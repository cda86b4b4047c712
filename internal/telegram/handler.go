package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MessageEnqueuer defines the interface for enqueuing inbound messages.
type MessageEnqueuer interface {
	Enqueue(msg IncomingMessage) error
}

// Handler bridges the transport subscription to the dispatch queue.
type Handler struct {
	messenger Messenger
	queue     MessageEnqueuer
	logger    *slog.Logger
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a transport handler.
func NewHandler(messenger Messenger, queue MessageEnqueuer, opts ...HandlerOption) (*Handler, error) {
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	h := &Handler{
		messenger: messenger,
		queue:     queue,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Start consumes inbound messages until ctx is canceled.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return fmt.Errorf("handler already running")
	}
	h.running = true
	h.mu.Unlock()

	messages, err := h.messenger.Subscribe(ctx)
	if err != nil {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}

	h.logger.Info("telegram handler started")

	h.wg.Add(1)
	go h.processMessages(ctx, messages)

	<-ctx.Done()

	h.mu.Lock()
	h.running = false
	h.mu.Unlock()

	h.wg.Wait()

	h.logger.Info("telegram handler stopped")
	return nil
}

func (h *Handler) processMessages(ctx context.Context, messages <-chan IncomingMessage) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				h.logger.Debug("message channel closed")
				return
			}
			if err := h.queue.Enqueue(msg); err != nil {
				h.logger.Error("failed to enqueue message",
					"identity", msg.Identity,
					"error", err)
			}
		}
	}
}
