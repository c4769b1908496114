// Package link owns the per-hand connection state machines and the dual-link
// supervisor: device resolution, connect, subscription, stream watch, retry
// with capped backoff, and the cross-link no-duplicate-device invariant.
package link

import (
	"sync"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
)

// Hand identifies one of the two symmetric sensor links.
type Hand string

const (
	LeftHand  Hand = "left"
	RightHand Hand = "right"
)

// Other returns the opposite hand.
func (h Hand) Other() Hand {
	if h == LeftHand {
		return RightHand
	}
	return LeftHand
}

// ConnectionState is a closed tagged variant describing one hand's link
// health. The concrete types are Connected, Reconnecting, and Disconnected.
// Transitions are always total replacements of the previous value.
type ConnectionState interface {
	connectionState()
}

// Connected reports a healthy streaming link.
type Connected struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Reconnecting reports a link in its retry cycle.
type Reconnecting struct {
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Disconnected reports a link that is down and not retrying.
type Disconnected struct {
	Reason string `json:"reason,omitempty"`
}

func (Connected) connectionState()    {}
func (Reconnecting) connectionState() {}
func (Disconnected) connectionState() {}

// StateUpdate is one state replacement, broadcast to observers.
type StateUpdate struct {
	Hand  Hand
	State ConnectionState
}

// StateTracker holds exactly one ConnectionState per hand and broadcasts
// replacements. Reads are snapshots; the tracker never hands out its
// internal map.
type StateTracker struct {
	mu      sync.Mutex
	states  map[Hand]ConnectionState
	updates *stream.Broadcast[StateUpdate]
}

// NewStateTracker starts both hands Disconnected.
func NewStateTracker() *StateTracker {
	return &StateTracker{
		states: map[Hand]ConnectionState{
			LeftHand:  Disconnected{},
			RightHand: Disconnected{},
		},
		updates: stream.NewBroadcast[StateUpdate](16),
	}
}

// Set replaces h's state wholesale and notifies observers.
func (t *StateTracker) Set(h Hand, s ConnectionState) {
	t.mu.Lock()
	t.states[h] = s
	t.mu.Unlock()
	t.updates.Publish(StateUpdate{Hand: h, State: s})
}

// Get returns h's current state.
func (t *StateTracker) Get(h Hand) ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[h]
}

// Snapshot returns a copy of both hands' states.
func (t *StateTracker) Snapshot() map[Hand]ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Hand]ConnectionState, len(t.states))
	for h, s := range t.states {
		out[h] = s
	}
	return out
}

// Updates exposes the replacement feed for observers.
func (t *StateTracker) Updates() *stream.Broadcast[StateUpdate] {
	return t.updates
}
