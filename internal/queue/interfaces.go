package queue

import "context"

// Processor handles one dequeued message. The manager guarantees that
// Process is never invoked concurrently for the same identity.
type Processor interface {
	Process(ctx context.Context, msg *Message) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, msg *Message) error

// Process calls the wrapped function.
func (f ProcessorFunc) Process(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}
