package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// worker pulls messages from the manager and hands them to the processor.
type worker struct {
	manager   *Manager
	processor Processor
	logger    *slog.Logger
	id        int
}

func (w *worker) run(ctx context.Context) {
	w.logger.Debug("worker starting", "worker", w.id)

	for {
		msg, err := w.manager.RequestMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Error("worker request failed", "worker", w.id, "error", err)
			}
			return
		}
		if msg == nil {
			// Manager is shutting down.
			return
		}

		if err := w.processor.Process(ctx, msg); err != nil {
			w.logger.Error("failed to process message",
				"worker", w.id,
				"message_id", msg.ID,
				"identity", msg.Identity,
				"error", err)
		}

		if err := w.manager.Complete(msg); err != nil {
			w.logger.Error("failed to complete message",
				"worker", w.id,
				"message_id", msg.ID,
				"error", err)
		}
	}
}

// Pool runs a fixed set of workers against the manager.
type Pool struct {
	manager   *Manager
	processor Processor
	logger    *slog.Logger
	size      int
	wg        sync.WaitGroup
}

// PoolOption configures the pool.
type PoolOption func(*Pool)

// WithPoolLogger sets a custom logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates a worker pool of the given size.
func NewPool(size int, manager *Manager, processor Processor, opts ...PoolOption) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}

	p := &Pool{
		manager:   manager,
		processor: processor,
		logger:    slog.Default(),
		size:      size,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start launches the workers. They stop when ctx is canceled or the
// manager shuts down.
func (p *Pool) Start(ctx context.Context) {
	for i := 1; i <= p.size; i++ {
		w := &worker{
			id:        i,
			manager:   p.manager,
			processor: p.processor,
			logger:    p.logger,
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx)
		}()
	}
}

// Wait blocks until every worker has stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}
