// Package stream provides bounded broadcast plumbing between the link layer
// and its consumers. One producer publishes into the broadcast; any number of
// subscribers receive on their own buffered channel. When a subscriber's
// buffer is full the oldest unconsumed item is dropped in favour of the new
// one: fresh data is preferred over completeness.
package stream

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// DefaultCapacity is the per-subscriber buffer size for raw sample feeds.
const DefaultCapacity = 1024

// Broadcast fans values out to subscribers with drop-oldest backpressure.
type Broadcast[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan T
	capacity    int
	closed      bool
	dropped     uint64
}

// NewBroadcast creates a broadcast whose subscriber channels hold up to
// capacity items. A capacity below one falls back to DefaultCapacity.
func NewBroadcast[T any](capacity int) *Broadcast[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Broadcast[T]{
		subscribers: make(map[string]chan T),
		capacity:    capacity,
	}
}

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new subscriber and returns its ID and receive channel.
// Subscribing to a closed broadcast returns a closed channel.
func (b *Broadcast[T]) Subscribe() (string, <-chan T) {
	id := randomID()
	ch := make(chan T, b.capacity)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcast[T]) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish delivers v to every subscriber. A subscriber whose buffer is full
// loses its oldest unconsumed item.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- v:
			continue
		default:
		}
		// Buffer full: evict the oldest item, then retry once. The retry can
		// still lose the race against a concurrent receive, in which case the
		// send just succeeds on the freed slot.
		select {
		case <-ch:
			b.dropped++
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Dropped reports how many items have been evicted across all subscribers.
func (b *Broadcast[T]) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Broadcast[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
