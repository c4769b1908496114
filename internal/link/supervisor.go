package link

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/monitoring"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/protocol"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/timeutil"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/transport"
)

// ErrDuplicateAddress is returned by Start when both hands are statically
// pinned to the same device address.
var ErrDuplicateAddress = errors.New("both hands configured with the same address")

// ErrAlreadyStarted is returned by Start when the supervisor is running.
var ErrAlreadyStarted = errors.New("supervisor already started")

// Supervisor owns the two hand links under independent-failure semantics: a
// failure or stall in one hand never cancels the other. It is the only
// component allowed to detach transports from outside a link's own loop, and
// it always does so over a registry snapshot.
type Supervisor struct {
	tr    transport.Transport
	clock timeutil.Clock

	registry *Registry
	states   *StateTracker
	links    map[Hand]*Link

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    sync.WaitGroup
	started bool
}

// NewSupervisor builds both hand links. Sample broadcasts exist from here on
// so consumers can subscribe before Start.
func NewSupervisor(tr transport.Transport, clock timeutil.Clock, left, right LinkConfig) *Supervisor {
	s := &Supervisor{
		tr:       tr,
		clock:    clock,
		registry: NewRegistry(),
		states:   NewStateTracker(),
	}
	epoch := clock.Now()
	s.links = map[Hand]*Link{
		LeftHand:  NewLink(LeftHand, left, right, tr, s.registry, s.states, clock, epoch),
		RightHand: NewLink(RightHand, right, left, tr, s.registry, s.states, clock, epoch),
	}
	return s
}

// States exposes the per-hand connection state tracker.
func (s *Supervisor) States() *StateTracker {
	return s.states
}

// Samples exposes one hand's raw sample broadcast.
func (s *Supervisor) Samples(h Hand) *stream.Broadcast[RawSample] {
	return s.links[h].Samples()
}

// Start validates the static configuration and spawns both link loops. A
// duplicate static address is fatal: both hands are marked Disconnected and
// no link loop runs until the caller fixes the configuration and starts
// again. The check happens once here, not per retry.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	left := s.links[LeftHand].cfg
	right := s.links[RightHand].cfg
	if left.Address != "" && left.Address == right.Address {
		s.states.Set(LeftHand, Disconnected{Reason: ReasonDuplicateMAC})
		s.states.Set(RightHand, Disconnected{Reason: ReasonDuplicateMAC})
		return ErrDuplicateAddress
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	for hand, l := range s.links {
		s.done.Add(1)
		go func(hand Hand, l *Link) {
			defer s.done.Done()
			l.Run(ctx)
		}(hand, l)
	}
	monitoring.Logf("supervisor: both link loops started")
	return nil
}

// Stop cancels both link loops, waits for them to exit, and performs a
// best-effort safe detach of anything still connected.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	// Snapshot before cancelling: the loops release their registry entries
	// on exit, and the detach must still reach devices live at Stop time.
	snapshot := s.registry.Snapshot()
	cancel()
	s.done.Wait()
	for hand, live := range snapshot {
		detach(hand, live.Device)
	}

	s.states.Set(LeftHand, Disconnected{})
	s.states.Set(RightHand, Disconnected{})
}

// ResetAll safe-detaches every live transport: notifications off, DISABLE
// command, disconnect. It iterates a snapshot so the registry is never
// walked while a link loop mutates it. Callable at any time.
func (s *Supervisor) ResetAll() {
	for hand, live := range s.registry.Snapshot() {
		detach(hand, live.Device)
	}
}

// detach is the safe-detach sequence for one device. Every step is best
// effort; a half-dead device must not abort the teardown of the rest.
func detach(hand Hand, dev transport.Device) {
	for _, char := range [...]uuid.UUID{protocol.CharNotify, protocol.CharNotifyMain} {
		if err := dev.SetNotification(char, false); err != nil {
			monitoring.Logf("detach[%s]: disable notify %s: %v", hand, char, err)
		}
	}
	if err := dev.Write(protocol.CharWrite, protocol.CmdDisable); err != nil {
		monitoring.Logf("detach[%s]: disable command: %v", hand, err)
	}
	if err := dev.Disconnect(); err != nil {
		monitoring.Logf("detach[%s]: disconnect: %v", hand, err)
	}
}
