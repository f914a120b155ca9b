package hub

import (
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// Registry is the set of live subscribers. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[ports.Subscriber]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[ports.Subscriber]struct{})}
}

// Add registers sub. It reports false if sub was already present.
func (r *Registry) Add(sub ports.Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub]; ok {
		return false
	}
	r.subs[sub] = struct{}{}
	return true
}

// Remove deregisters sub. It reports false if sub was not present.
func (r *Registry) Remove(sub ports.Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub]; !ok {
		return false
	}
	delete(r.subs, sub)
	return true
}

// Snapshot returns the current members. The slice is owned by the caller.
func (r *Registry) Snapshot() []ports.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.Subscriber, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// Len returns the number of members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// CloseAll closes and removes every member.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[ports.Subscriber]struct{})
	r.mu.Unlock()

	for sub := range subs {
		_ = sub.Close()
	}
}
