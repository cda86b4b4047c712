package queue

import (
	"fmt"
	"sync"
)

// identityQueue holds pending messages for a single identity. It releases
// at most one message at a time: Dequeue returns nil until the previous
// message is completed, which is what serializes a user's events.
type identityQueue struct {
	messages   []*Message
	processing *Message
	identity   int64
	mu         sync.Mutex
}

func newIdentityQueue(identity int64) *identityQueue {
	return &identityQueue{identity: identity}
}

// Enqueue appends a message in arrival order.
func (q *identityQueue) Enqueue(msg *Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if msg == nil {
		return fmt.Errorf("cannot enqueue nil message")
	}
	if msg.Identity != q.identity {
		return fmt.Errorf("message identity %d does not match queue identity %d",
			msg.Identity, q.identity)
	}

	q.messages = append(q.messages, msg)
	return nil
}

// Dequeue returns the next message, or nil if the queue is empty or a
// message from this identity is still being processed.
func (q *identityQueue) Dequeue() *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.processing != nil || len(q.messages) == 0 {
		return nil
	}

	msg := q.messages[0]
	q.messages = q.messages[1:]
	q.processing = msg
	return msg
}

// Complete marks the in-flight message as done, releasing the next one.
func (q *identityQueue) Complete() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.processing = nil
}

// Pending returns the number of waiting messages.
func (q *identityQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.messages)
}

// IsEmpty reports whether nothing is queued or in flight.
func (q *identityQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.messages) == 0 && q.processing == nil
}
