package transport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockTransport is a scriptable in-memory Transport for tests. Devices are
// registered up front; Resolve matches them the way a radio scan would.
type MockTransport struct {
	mu      sync.Mutex
	devices []*MockDevice

	// ResolveErr, when set, fails every Resolve call.
	ResolveErr error

	resolveCalls int
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport(devices ...*MockDevice) *MockTransport {
	return &MockTransport{devices: devices}
}

// AddDevice registers a device for resolution.
func (m *MockTransport) AddDevice(d *MockDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, d)
}

// ResolveCalls reports how many times Resolve has been invoked.
func (m *MockTransport) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// Resolve returns the first registered device matching req, honouring the
// exclusion address. It never blocks; a miss is an immediate ErrNotFound.
func (m *MockTransport) Resolve(ctx context.Context, req ResolveRequest) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalls++
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, d := range m.devices {
		if req.ExcludeAddress != "" && d.addr == req.ExcludeAddress {
			continue
		}
		if req.Address != "" && d.addr != req.Address {
			continue
		}
		if req.Address == "" && req.NamePrefix != "" && !strings.HasPrefix(d.name, req.NamePrefix) {
			continue
		}
		return d, nil
	}
	return nil, ErrNotFound
}

// MockDevice is a scriptable Device. Unless AutoAck is disabled, every
// SetNotification call is acknowledged with an immediate descriptor-write
// event, and Connect is followed by connected and services-ready events.
type MockDevice struct {
	mu   sync.Mutex
	addr string
	name string

	// ConnectErr, when set, fails Connect.
	ConnectErr error

	// ManualAck suppresses the automatic descriptor-write acknowledgement;
	// tests drive AckDescriptor themselves.
	ManualAck bool

	// WriteErr, when set, fails every Write call.
	WriteErr error

	// NotifyErr, when set, fails every SetNotification call.
	NotifyErr error

	events        chan Event
	connected     bool
	disconnected  bool
	connectCount  int
	writes        []MockWrite
	subscriptions []MockSubscription
	pendingAcks   []uuid.UUID
}

// MockWrite records one Write call.
type MockWrite struct {
	Characteristic uuid.UUID
	Payload        []byte
}

// MockSubscription records one SetNotification call.
type MockSubscription struct {
	Characteristic uuid.UUID
	Enable         bool
}

// NewMockDevice creates a device with the given identity.
func NewMockDevice(addr, name string) *MockDevice {
	return &MockDevice{addr: addr, name: name}
}

// Address returns the scripted physical address.
func (d *MockDevice) Address() string { return d.addr }

// Name returns the scripted advertised name.
func (d *MockDevice) Name() string { return d.name }

// Connect opens the event channel and, unless scripted otherwise, reports
// connected followed by services-ready.
func (d *MockDevice) Connect(ctx context.Context) (<-chan Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	d.connectCount++
	d.connected = true
	d.disconnected = false
	d.events = make(chan Event, 64)
	d.events <- Event{Kind: EventConnected}
	d.events <- Event{Kind: EventServicesReady}
	return d.events, nil
}

// ConnectCount reports how many times Connect succeeded.
func (d *MockDevice) ConnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectCount
}

// RequestMTU records nothing and succeeds; MTU negotiation is best effort.
func (d *MockDevice) RequestMTU(mtu int) error { return nil }

// RequestHighPriority succeeds; priority negotiation is best effort.
func (d *MockDevice) RequestHighPriority() error { return nil }

// SetNotification records the call and, unless ManualAck is set, immediately
// acknowledges it with a descriptor-write event.
func (d *MockDevice) SetNotification(char uuid.UUID, enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NotifyErr != nil {
		return d.NotifyErr
	}
	d.subscriptions = append(d.subscriptions, MockSubscription{Characteristic: char, Enable: enable})
	if !d.connected {
		return nil
	}
	if d.ManualAck {
		d.pendingAcks = append(d.pendingAcks, char)
		return nil
	}
	d.emitLocked(Event{Kind: EventDescriptorWriteDone, Characteristic: char})
	return nil
}

// AckDescriptor delivers the next pending descriptor acknowledgement when
// ManualAck is in effect.
func (d *MockDevice) AckDescriptor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pendingAcks) == 0 {
		return
	}
	char := d.pendingAcks[0]
	d.pendingAcks = d.pendingAcks[1:]
	d.emitLocked(Event{Kind: EventDescriptorWriteDone, Characteristic: char})
}

// Subscriptions returns a copy of all recorded SetNotification calls.
func (d *MockDevice) Subscriptions() []MockSubscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MockSubscription, len(d.subscriptions))
	copy(out, d.subscriptions)
	return out
}

// Write records the payload.
func (d *MockDevice) Write(char uuid.UUID, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return d.WriteErr
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	d.writes = append(d.writes, MockWrite{Characteristic: char, Payload: buf})
	return nil
}

// Writes returns a copy of all recorded Write calls.
func (d *MockDevice) Writes() []MockWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MockWrite, len(d.writes))
	copy(out, d.writes)
	return out
}

// Notify injects a notification payload as the sensor would.
func (d *MockDevice) Notify(char uuid.UUID, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	d.emitLocked(Event{Kind: EventNotification, Characteristic: char, Data: buf})
}

// Drop simulates a carrier-side disconnection.
func (d *MockDevice) Drop(reason error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return
	}
	if reason == nil {
		reason = errors.New("connection dropped")
	}
	d.emitLocked(Event{Kind: EventDisconnected, Err: reason})
	d.closeLocked()
}

// Disconnect tears the mock connection down.
func (d *MockDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}

// Disconnected reports whether Disconnect or Drop has completed.
func (d *MockDevice) Disconnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnected
}

func (d *MockDevice) emitLocked(ev Event) {
	if !d.connected {
		return
	}
	select {
	case d.events <- ev:
	default:
		// Event buffer full; a real carrier would drop too.
	}
}

func (d *MockDevice) closeLocked() {
	if !d.connected {
		return
	}
	d.connected = false
	d.disconnected = true
	close(d.events)
}
