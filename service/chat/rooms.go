package chat

import (
	"sync"

	"chatter/logger"
)

// Rooms maps room names to live members. Two kinds of room share the
// namespace: conversation rooms (named by conversation id) and user rooms
// (named by user id, one per authenticated connection so directed events
// reach every device). Membership is derived purely from live connections;
// nothing is persisted. Connections leave rooms only by disconnecting.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]map[string]*Client)}
}

// Join adds c to the named room. A connection may belong to several rooms
// at once (own user room + current conversation room + pairing room).
func (r *Rooms) Join(room string, c *Client) {
	if room == "" || c == nil {
		return
	}
	r.mu.Lock()
	m := r.rooms[room]
	if m == nil {
		m = make(map[string]*Client)
		r.rooms[room] = m
	}
	m[c.ConnID] = c
	r.mu.Unlock()
}

// LeaveAll removes c from every room it belongs to. Called on disconnect.
func (r *Rooms) LeaveAll(c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	for name, m := range r.rooms {
		if _, ok := m[c.ConnID]; ok {
			delete(m, c.ConnID)
			if len(m) == 0 {
				delete(r.rooms, name)
			}
		}
	}
	r.mu.Unlock()
}

// Members returns a snapshot of the room's membership. Enumeration never
// runs against the live map so a concurrent connect/disconnect cannot
// invalidate an in-flight broadcast.
func (r *Rooms) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.rooms[room]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Broadcast delivers event/payload to every member of room, optionally
// excluding one connection (so a sender does not echo its own chat or
// typing event). An empty room is a no-op, not an error.
func (r *Rooms) Broadcast(room, event string, payload any, excludeConnID string) {
	members := r.Members(room)
	if len(members) == 0 {
		return
	}
	data, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Errorf("[rooms] encode %s failed: %v", event, err)
		return
	}
	for _, c := range members {
		if c.ConnID == excludeConnID {
			continue
		}
		c.enqueue(data)
	}
}

// Emit is the direct emit: delivery to every connection in the user's own
// room, i.e. all of that user's devices.
func (r *Rooms) Emit(userID, event string, payload any) {
	r.Broadcast(userID, event, payload, "")
}
