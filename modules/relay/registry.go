package relay

import "sync"

// Registry tracks every live connection, bound or not. The keep-alive
// broadcast and the health endpoint read it; the WebSocket accept/teardown
// path mutates it.
type Registry struct {
	conns map[string]Client
	mu    sync.RWMutex
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Client),
	}
}

// Add registers a connection on transport accept.
func (r *Registry) Add(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID()] = c
}

// Remove drops a connection. Idempotent; it runs during teardown and must
// never panic.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Each calls fn for every live connection. fn must not block; send failures
// to one connection must not affect the others.
func (r *Registry) Each(fn func(Client)) {
	r.mu.RLock()
	conns := make([]Client, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		fn(c)
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
