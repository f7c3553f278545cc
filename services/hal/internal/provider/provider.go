// Package provider tracks which device owns each GPIO handed out by the
// platform pin factory.
package provider

import (
	"sync"

	"barocode-go/errcode"
	"barocode-go/services/hal/internal/halcore"
	"barocode-go/services/hal/internal/halerr"
)

// Ensure the provider satisfies the contract at compile time.
var _ halcore.PinClaimer = (*Registry)(nil)

// Registry hands out platform pins with single ownership.
type Registry struct {
	mu     sync.Mutex
	pins   halcore.PinFactory
	owners map[int]string // pin -> devID
}

func New(pins halcore.PinFactory) *Registry {
	return &Registry{pins: pins, owners: make(map[int]string)}
}

// ClaimPin returns pin n for devID. Claiming a pin the device already owns
// returns it again.
func (r *Registry) ClaimPin(devID string, n int) (halcore.GPIOPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, inUse := r.owners[n]; inUse && owner != devID {
		return nil, &errcode.E{C: errcode.PinInUse, Op: devID, Msg: "owned by " + owner}
	}
	var p halcore.GPIOPin
	ok := false
	if r.pins != nil {
		p, ok = r.pins.ByNumber(n)
	}
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: devID, Err: halerr.ErrUnknownPin}
	}
	r.owners[n] = devID
	return p, nil
}

func (r *Registry) ReleasePin(devID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[n] == devID {
		delete(r.owners, n)
	}
}

// ReleaseAll drops every claim held by devID.
func (r *Registry) ReleaseAll(devID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n, owner := range r.owners {
		if owner == devID {
			delete(r.owners, n)
		}
	}
}

// Owner reports which device holds pin n.
func (r *Registry) Owner(n int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owners[n]
	return id, ok
}
