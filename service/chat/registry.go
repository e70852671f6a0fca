package chat

import "sync"

// Registry is the presence registry: connection id -> user id, built as
// connections announce identity and torn down on disconnect. A user is
// online iff at least one live connection maps to their id, so multi-device
// presence is the OR of the device connections. State lives only for the
// process lifetime.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]string
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[string]string)}
}

// Register records connID -> userID. Idempotent.
func (r *Registry) Register(connID, userID string) {
	if connID == "" || userID == "" {
		return
	}
	r.mu.Lock()
	r.byConn[connID] = userID
	r.mu.Unlock()
}

// Unregister drops the mapping for connID. If it was the user's last live
// connection the user is effectively offline.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	delete(r.byConn, connID)
	r.mu.Unlock()
}

// IsOnline reports whether any live connection maps to userID.
func (r *Registry) IsOnline(userID string) bool {
	if userID == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, uid := range r.byConn {
		if uid == userID {
			return true
		}
	}
	return false
}

// Count returns the number of live tracked connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
