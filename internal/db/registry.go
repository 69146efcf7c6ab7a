package db

import (
	"fmt"
	"sync"
)

// Registry hands out opaque string handles for connections that must cross
// call boundaries where passing a Conn directly is impractical (embedding
// hosts, RPC shims). The registry owns the handle-to-connection mapping but
// not the connections' lifetime policy: callers decide when to Dispose.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	next  int
	conns map[string]Conn
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Create registers conn and returns its handle.
func (r *Registry) Create(conn Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := fmt.Sprintf("conn_%d", r.next)
	r.next++
	r.conns[handle] = conn
	return handle
}

// Lookup returns the connection for handle, or an error if the handle is
// unknown or already disposed.
func (r *Registry) Lookup(handle string) (Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[handle]
	if !ok {
		return nil, fmt.Errorf("connection %q not found", handle)
	}
	return conn, nil
}

// Dispose closes the connection for handle and removes it from the registry.
// Returns an error if the handle is unknown.
func (r *Registry) Dispose(handle string) error {
	r.mu.Lock()
	conn, ok := r.conns[handle]
	delete(r.conns, handle)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("connection %q not found", handle)
	}
	return conn.Close()
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Close disposes every registered connection, returning the first close
// error encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	var firstErr error
	for _, conn := range conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
