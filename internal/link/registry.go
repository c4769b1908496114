package link

import (
	"sync"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/transport"
)

// LiveLink is one hand's currently-bound device.
type LiveLink struct {
	Address string
	Device  transport.Device
}

// Registry maps each hand to its bound physical device while connected. It
// backs the no-duplicate-device invariant: a hand consults the registry
// before resolving and re-checks it after connecting. Entries are removed on
// disconnect, never overwritten with an empty marker.
type Registry struct {
	mu      sync.Mutex
	entries map[Hand]LiveLink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Hand]LiveLink)}
}

// Bind records h as connected to the given device.
func (r *Registry) Bind(h Hand, address string, dev transport.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[h] = LiveLink{Address: address, Device: dev}
}

// Release removes h's entry.
func (r *Registry) Release(h Hand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, h)
}

// Address reports the address h is bound to, if any.
func (r *Registry) Address(h Hand) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h]
	return e.Address, ok
}

// Snapshot returns an immutable copy of all live links. Detach paths iterate
// the snapshot so the registry is never walked while a link mutates it.
func (r *Registry) Snapshot() map[Hand]LiveLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Hand]LiveLink, len(r.entries))
	for h, e := range r.entries {
		out[h] = e
	}
	return out
}
