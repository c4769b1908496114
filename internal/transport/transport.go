// Package transport defines the byte-oriented, asynchronous notify/write
// channel the link layer drives. The radio stack itself is not implemented
// here; implementations adapt a concrete carrier (BLE stack, UART bridge,
// test mock) to this interface.
package transport

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Resolve when no device matches the request
// within the caller's deadline.
var ErrNotFound = errors.New("device not found")

// ResolveRequest narrows device resolution. Address pins an exact device;
// NamePrefix filters discovered names; ExcludeAddress skips a device that is
// already bound elsewhere.
type ResolveRequest struct {
	Address        string
	NamePrefix     string
	ExcludeAddress string
}

// Transport resolves devices. One Transport serves both links concurrently;
// each resolved Device is exclusively owned by the caller that resolved it.
type Transport interface {
	Resolve(ctx context.Context, req ResolveRequest) (Device, error)
}

// EventKind discriminates transport events.
type EventKind int

const (
	// EventConnected reports the physical connection is up.
	EventConnected EventKind = iota

	// EventDisconnected reports the connection dropped; Err carries the
	// reason when known. The event channel is closed afterwards.
	EventDisconnected

	// EventServicesReady reports service discovery finished; the device
	// accepts characteristic operations from here on.
	EventServicesReady

	// EventMTUChanged reports a negotiated transfer unit; MTU holds the new
	// value.
	EventMTUChanged

	// EventDescriptorWriteDone acknowledges the most recent SetNotification
	// call; Characteristic names the affected channel.
	EventDescriptorWriteDone

	// EventNotification delivers a notification payload; Characteristic
	// names the source channel and Data holds the raw bytes.
	EventNotification
)

// Event is one asynchronous occurrence on a connected device.
type Event struct {
	Kind           EventKind
	Characteristic uuid.UUID
	Data           []byte
	MTU            int
	Err            error
}

// Device is a resolved sensor. Connect may be called once per resolution;
// the returned channel carries all subsequent events and is closed when the
// connection ends.
type Device interface {
	// Address returns the device's physical address.
	Address() string

	// Name returns the advertised device name, if any.
	Name() string

	// Connect establishes the connection and starts event delivery.
	Connect(ctx context.Context) (<-chan Event, error)

	// RequestMTU asks the carrier for a larger transfer unit. Best effort.
	RequestMTU(mtu int) error

	// RequestHighPriority asks the carrier for low-latency connection
	// parameters. Best effort.
	RequestHighPriority() error

	// SetNotification enables or disables notifications on a
	// characteristic. Completion is reported asynchronously as an
	// EventDescriptorWriteDone event.
	SetNotification(char uuid.UUID, enable bool) error

	// Write sends a payload to a writable characteristic.
	Write(char uuid.UUID, payload []byte) error

	// Disconnect tears the connection down. Safe to call more than once.
	Disconnect() error
}
