package qrcode

import (
	"sync"
	"time"
)

type entry struct {
	handle Handle
	seed   Seed
}

// Registry maps order references to their Handle. It is safe for concurrent
// use and never expires anything on its own: expired handles are hidden from
// Lookup and removed by Sweep or Evict.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	factory Factory
	ttl     time.Duration
	now     func() time.Time
}

type RegistryOption func(*Registry)

// WithTTL makes entries expire ttl after their order started, whatever the
// handle reports. Zero leaves expiry to the handle.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]entry),
		factory: factory,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register builds a handle for seed and stores it under seed.OrderRef,
// replacing any previous one. It returns false and stores nothing when the
// seed carries no QR material.
func (r *Registry) Register(seed Seed) (Handle, bool) {
	if !seed.Valid() {
		return nil, false
	}
	if seed.StartedAt.IsZero() {
		seed.StartedAt = r.now()
	}

	h := r.factory(seed)
	if h == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[seed.OrderRef] = entry{handle: h, seed: seed}

	return h, true
}

// Lookup returns the live handle of orderRef.
func (r *Registry) Lookup(orderRef string) (Handle, bool) {
	r.mu.RLock()
	e, ok := r.entries[orderRef]
	r.mu.RUnlock()

	if !ok || r.expired(e) {
		return nil, false
	}
	return e.handle, true
}

func (r *Registry) Evict(orderRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, orderRef)
}

// Sweep removes every expired entry and returns how many it removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for ref, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, ref)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func (r *Registry) expired(e entry) bool {
	if r.ttl > 0 && !r.now().Before(e.seed.StartedAt.Add(r.ttl)) {
		return true
	}
	return e.handle.Expired()
}
