package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/monitoring"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/protocol"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/timeutil"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/transport"
)

// RawSample is one decoded PPG reading tagged with a monotonic capture time.
// Samples are emitted in decode order into the hand's broadcast buffer.
type RawSample struct {
	TimeSeconds float64
	PPG         float32
}

var (
	errDuplicateMAC = errors.New(ReasonDuplicateMAC)
	errStall        = errors.New(ReasonStall)
	errLinkLost     = errors.New("link lost")
)

// Link is one hand's connection state machine. It exclusively owns its
// transport device for the device's lifetime and is the only writer of its
// hand's ConnectionState and registry entry.
type Link struct {
	hand     Hand
	cfg      LinkConfig
	otherCfg LinkConfig

	tr       transport.Transport
	registry *Registry
	states   *StateTracker
	clock    timeutil.Clock
	epoch    time.Time
	samples  *stream.Broadcast[RawSample]

	// Identity of the most recently resolved device, echoed into
	// Reconnecting states. Only the Run goroutine touches these.
	lastName    string
	lastAddress string
}

// NewLink wires a hand's state machine. epoch anchors the monotonic sample
// clock and must be shared by both hands so their samples are comparable.
func NewLink(hand Hand, cfg, otherCfg LinkConfig, tr transport.Transport, registry *Registry, states *StateTracker, clock timeutil.Clock, epoch time.Time) *Link {
	return &Link{
		hand:     hand,
		cfg:      cfg,
		otherCfg: otherCfg,
		tr:       tr,
		registry: registry,
		states:   states,
		clock:    clock,
		epoch:    epoch,
		samples:  stream.NewBroadcast[RawSample](stream.DefaultCapacity),
	}
}

// Samples exposes this hand's raw sample broadcast.
func (l *Link) Samples() *stream.Broadcast[RawSample] {
	return l.samples
}

// Run drives the retry loop until ctx is cancelled. Every failure is
// recorded as a Reconnecting state and retried after a capped backoff;
// cancellation exits without recording any further transition.
func (l *Link) Run(ctx context.Context) {
	attempt := 0
	for {
		err := l.session(ctx)
		if ctx.Err() != nil {
			return
		}

		attempt++
		reason, delay := l.classify(err, attempt)
		monitoring.Logf("link[%s]: session ended (%v), retry %d in %s", l.hand, err, attempt, delay)
		l.states.Set(l.hand, Reconnecting{
			Attempt: attempt,
			Reason:  reason,
			Name:    l.lastName,
			Address: l.lastAddress,
		})

		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(delay):
		}
	}
}

// classify maps a session error to its surfaced reason and retry delay.
func (l *Link) classify(err error, attempt int) (string, time.Duration) {
	steps := attempt
	if steps > maxBackoffSteps {
		steps = maxBackoffSteps
	}
	delay := time.Duration(steps) * backoffStep

	switch {
	case errors.Is(err, transport.ErrNotFound):
		return ReasonNotFound, notFoundRetryDelay
	case errors.Is(err, errDuplicateMAC):
		return ReasonDuplicateMAC, delay
	case errors.Is(err, errStall):
		return ReasonStall, delay
	case err != nil:
		return err.Error(), delay
	default:
		return "", delay
	}
}

// session runs one resolve/connect/stream cycle. On return the device is
// disconnected and the registry entry released, whatever the outcome.
func (l *Link) session(ctx context.Context) error {
	// The other hand's bound address is excluded from resolution; before it
	// has connected, its static address stands in.
	exclude, live := l.registry.Address(l.hand.Other())
	if !live {
		exclude = l.otherCfg.Address
	}

	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	dev, err := l.tr.Resolve(rctx, transport.ResolveRequest{
		Address:        l.cfg.Address,
		NamePrefix:     l.cfg.NamePrefix,
		ExcludeAddress: exclude,
	})
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return transport.ErrNotFound
		}
		return err
	}
	l.lastName = dev.Name()
	l.lastAddress = dev.Address()

	events, err := dev.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", dev.Address(), err)
	}
	defer func() {
		dev.Disconnect()
		l.registry.Release(l.hand)
	}()

	// Second duplicate guard: the other hand may have bound this same
	// device while our connect was in flight.
	if other, ok := l.registry.Address(l.hand.Other()); ok && other == dev.Address() {
		return errDuplicateMAC
	}
	l.registry.Bind(l.hand, dev.Address(), dev)
	l.states.Set(l.hand, Connected{Name: dev.Name(), Address: dev.Address()})

	return l.stream(ctx, dev, events)
}

// stream services a connected device: the subscription queue, the ENABLE
// handshake, notification decoding, and the stall watchdog all interleave in
// one select loop so none of them can block another.
func (l *Link) stream(ctx context.Context, dev transport.Device, events <-chan transport.Event) error {
	watchdog := l.clock.NewTicker(watchdogPeriod)
	defer watchdog.Stop()

	// Pending descriptor writes, issued strictly one at a time; the head is
	// in flight once issued and popped on its acknowledgement.
	pending := []uuid.UUID{protocol.CharNotify, protocol.CharNotifyMain}
	enableSent := false // one-shot: repeat acknowledgements must not resend
	var enableTimer, repeatTimer <-chan time.Time

	var lastSample time.Time
	received := false

	// issueNext starts the next descriptor write, skipping past immediate
	// failures so one bad write cannot stall the queue. When the queue
	// drains it arms the ENABLE handshake exactly once.
	issueNext := func() {
		for len(pending) > 0 {
			char := pending[0]
			if err := dev.SetNotification(char, true); err != nil {
				monitoring.Logf("link[%s]: subscribe %s failed: %v", l.hand, char, err)
				pending = pending[1:]
				continue
			}
			return
		}
		if !enableSent {
			enableSent = true
			enableTimer = l.clock.After(enableFirstDelay)
		}
	}

	sendEnable := func() error {
		if err := dev.Write(protocol.CharWrite, protocol.CmdEnable); err != nil {
			return fmt.Errorf("enable command: %w", err)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-watchdog.C():
			if received && l.clock.Since(lastSample) > l.cfg.stallTimeout() {
				return errStall
			}

		case <-enableTimer:
			enableTimer = nil
			if err := sendEnable(); err != nil {
				return err
			}
			repeatTimer = l.clock.After(enableSecondDelay)

		case <-repeatTimer:
			repeatTimer = nil
			if err := sendEnable(); err != nil {
				return err
			}

		case ev, ok := <-events:
			if !ok {
				return errLinkLost
			}
			switch ev.Kind {
			case transport.EventConnected:
				// Physical connect already observed by session.

			case transport.EventServicesReady:
				if err := dev.RequestMTU(requestedMTU); err != nil {
					monitoring.Logf("link[%s]: mtu request failed: %v", l.hand, err)
				}
				if err := dev.RequestHighPriority(); err != nil {
					monitoring.Logf("link[%s]: priority request failed: %v", l.hand, err)
				}
				issueNext()

			case transport.EventMTUChanged:
				monitoring.Debugf("link[%s]: mtu now %d", l.hand, ev.MTU)

			case transport.EventDescriptorWriteDone:
				if len(pending) > 0 {
					pending = pending[1:]
				}
				issueNext()

			case transport.EventNotification:
				for _, frame := range protocol.Decode(ev.Data) {
					ppg, ok := frame.(protocol.PPGFrame)
					if !ok {
						continue
					}
					lastSample = l.clock.Now()
					received = true
					l.samples.Publish(RawSample{
						TimeSeconds: l.clock.Since(l.epoch).Seconds(),
						PPG:         float32(ppg.Value),
					})
				}

			case transport.EventDisconnected:
				if ev.Err != nil {
					return fmt.Errorf("%w: %v", errLinkLost, ev.Err)
				}
				return errLinkLost
			}
		}
	}
}
