// Package notify fans state snapshots out to subscribers.
package notify

import "sync"

// Broadcaster delivers values to subscribed channels without ever blocking the
// publisher. A subscriber whose buffer is full is dropped and its channel closed.
type Broadcaster[T any] struct {
	mutex     sync.Mutex
	listeners []chan T
	buffer    int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold buffer values.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster[T]{buffer: buffer}
}

// Subscribe adds a listener for published values
func (b *Broadcaster[T]) Subscribe() <-chan T {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	ch := make(chan T, b.buffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel (call this when done to prevent leaks)
func (b *Broadcaster[T]) Unsubscribe(ch <-chan T) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, listener := range b.listeners {
		if listener == ch {
			close(listener)
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish sends value to every listener
func (b *Broadcaster[T]) Publish(value T) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	kept := b.listeners[:0]
	for _, listener := range b.listeners {
		select {
		case listener <- value:
			kept = append(kept, listener)
		default:
			// slow consumer
			close(listener)
		}
	}
	b.listeners = kept
}

// Len returns the number of active listeners
func (b *Broadcaster[T]) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return len(b.listeners)
}
