// Package serialbridge adapts a UART gateway to the transport interface.
// Bench rigs tunnel the ring's framed notification stream over a serial
// port; the bridge maps the port to a single device whose "address" is the
// port path, streaming read chunks as notifications on the main notify
// characteristic.
package serialbridge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/monitoring"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/protocol"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/transport"
)

const readBufferSize = 512

// Transport resolves serial ports as devices.
type Transport struct {
	mode *serial.Mode
}

// New creates a bridge transport with the given baud rate.
func New(baudRate int) *Transport {
	return &Transport{
		mode: &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

// Resolve treats the requested address as a serial port path. The bridge
// cannot scan, so a missing address is a miss, as is an address matching the
// exclusion (the same port cannot serve both hands).
func (t *Transport) Resolve(ctx context.Context, req transport.ResolveRequest) (transport.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Address == "" || req.Address == req.ExcludeAddress {
		return nil, transport.ErrNotFound
	}
	return &device{path: req.Address, mode: t.mode}, nil
}

type device struct {
	path string
	mode *serial.Mode

	mu     sync.Mutex
	port   serial.Port
	events chan transport.Event
	closed bool
	cancel context.CancelFunc
}

// emit delivers an event unless the channel is already torn down. Sends are
// non-blocking: with the link loop wedged, dropping beats deadlocking.
func (d *device) emit(ev transport.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
		monitoring.Debugf("serialbridge: dropped event kind=%d", ev.Kind)
	}
}

// finish closes the event channel exactly once.
func (d *device) finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}

func (d *device) Address() string { return d.path }

// Name reports the port's base name; the bridge has no advertised name.
func (d *device) Name() string { return filepath.Base(d.path) }

// Connect opens the port and starts the read pump. The bridge has no
// discovery phase, so services-ready follows connected immediately.
func (d *device) Connect(ctx context.Context) (<-chan transport.Event, error) {
	port, err := serial.Open(d.path, d.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	d.mu.Lock()
	d.port = port
	d.events = make(chan transport.Event, 64)
	d.closed = false
	events := d.events
	d.mu.Unlock()

	rctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.emit(transport.Event{Kind: transport.EventConnected})
	d.emit(transport.Event{Kind: transport.EventServicesReady})

	go d.readLoop(rctx, port)
	return events, nil
}

// readLoop pumps raw port bytes out as notifications on the main notify
// characteristic until the port errors or the connection is torn down.
func (d *device) readLoop(ctx context.Context, port serial.Port) {
	defer d.finish()
	buf := make([]byte, readBufferSize)
	for {
		n, err := port.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			d.emit(transport.Event{Kind: transport.EventDisconnected, Err: err})
			return
		}
		if n == 0 {
			continue
		}
		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		d.emit(transport.Event{Kind: transport.EventNotification, Characteristic: protocol.CharNotifyMain, Data: chunk})
	}
}

// RequestMTU is a no-op: the serial link has no transfer-unit negotiation.
func (d *device) RequestMTU(mtu int) error { return nil }

// RequestHighPriority is a no-op on a dedicated UART.
func (d *device) RequestHighPriority() error { return nil }

// SetNotification acknowledges immediately; the bridge streams
// unconditionally and has no descriptors to write.
func (d *device) SetNotification(char uuid.UUID, enable bool) error {
	d.emit(transport.Event{Kind: transport.EventDescriptorWriteDone, Characteristic: char})
	return nil
}

// Write sends a command packet down the port.
func (d *device) Write(char uuid.UUID, payload []byte) error {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return fmt.Errorf("write to %s: port closed", d.path)
	}
	n, err := port.Write(payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("short write to %s: %d of %d bytes", d.path, n, len(payload))
	}
	return nil
}

// Disconnect stops the read pump and closes the port. Safe to call twice.
func (d *device) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()
	if port != nil {
		return port.Close()
	}
	return nil
}
