package chat

import (
	"errors"
	"sync"
)

// ErrAlreadyPresent is returned by Registry.Add for a client that is already
// registered. The handler lifecycle never does this; seeing it is a bug.
var ErrAlreadyPresent = errors.New("chat: client already registered")

// Registry is the set of clients that completed the name exchange and have
// not left yet. Add, Remove, Snapshot and Len share one lock.
type Registry struct {
	mu      sync.RWMutex
	order   []*Client
	members map[*Client]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		members: make(map[*Client]struct{}),
	}
}

// Add registers c.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; ok {
		return ErrAlreadyPresent
	}
	r.members[c] = struct{}{}
	r.order = append(r.order, c)
	return nil
}

// Remove unregisters c and reports whether it was present. Removing an
// absent client is a no-op.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	for i, existing := range r.order {
		if existing == c {
			copy(r.order[i:], r.order[i+1:])
			r.order[len(r.order)-1] = nil
			r.order = r.order[:len(r.order)-1]
			break
		}
	}
	return true
}

// Snapshot returns the registered clients in join order. The slice is a copy
// and may be iterated without holding any lock.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, len(r.order))
	copy(clients, r.order)
	return clients
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
