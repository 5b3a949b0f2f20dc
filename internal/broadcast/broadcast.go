// Package broadcast is a small typed publish/subscribe hub.
//
// Broadcast never blocks: each subscriber owns a buffered channel and a
// message that does not fit is dropped for that subscriber, which is then
// unsubscribed. Consumers that must not miss state should re-read the
// authoritative source after their channel closes.
package broadcast

import (
	"context"
	"sync"
)

// Message wraps a broadcast payload.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster. Safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed when the
	// subscription ends.
	Receive() <-chan Message[T]

	// Close ends the subscription. Idempotent.
	Close() error

	// Err reports why the subscription ended: ErrSlowSubscriber,
	// ErrClosed, or nil when it is still open or was closed by its owner
	// or context.
	Err() error
}

// Broadcaster fans messages out to subscribers.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber that lives until ctx is done or
	// Close is called on it or on the broadcaster.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast delivers msg to every subscriber without blocking.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close closes all subscribers; later Subscribe calls return closed
	// subscribers and Broadcast becomes a no-op.
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	err    error
	mu     sync.RWMutex
	onExit func()
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan Message[T], bufferSize)}
}

func (s *subscriber[T]) Receive() <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.end(nil)
	return nil
}

func (s *subscriber[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// end closes the subscription once, recording reason for Err.
func (s *subscriber[T]) end(reason error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.err = reason
	close(s.ch)
	s.closed = true
	onExit := s.onExit
	s.mu.Unlock()

	if onExit != nil {
		onExit()
	}
}

func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
