package chat

import (
	"context"
	"sync"
	"time"

	"chatter/logger"
	security "chatter/tools/security"
)

// PairingStore tracks single-use QR pairing nonces server-side. Implemented
// on redis in service/storage; a minted pairing token is only consumable
// while its nonce is live and unburned.
type PairingStore interface {
	Issue(ctx context.Context, nonce string, ttl time.Duration) error
}

// Server is the realtime gateway. It owns the presence registry and the
// room router and fans inbound events out to rooms or individual users.
// Single in-process instance; no cross-node state.
type Server struct {
	rooms    *Rooms
	registry *Registry
	disp     *Dispatcher

	jwt        security.Options
	pairing    PairingStore
	pairingTTL time.Duration

	mu      sync.RWMutex
	clients map[string]*Client // every live connection, for process-wide fan-out
}

func NewServer(jwt security.Options, pairing PairingStore, pairingTTL time.Duration) *Server {
	if pairingTTL <= 0 {
		pairingTTL = 2 * time.Minute
	}
	s := &Server{
		rooms:      NewRooms(),
		registry:   NewRegistry(),
		disp:       NewDispatcher(),
		jwt:        jwt,
		pairing:    pairing,
		pairingTTL: pairingTTL,
		clients:    make(map[string]*Client),
	}
	s.registerHandlers()
	return s
}

func (s *Server) Rooms() *Rooms       { return s.rooms }
func (s *Server) Registry() *Registry { return s.registry }

// IsOnline lets the REST layer consult live presence before deciding to
// push-notify a recipient.
func (s *Server) IsOnline(userID string) bool {
	return s.registry.IsOnline(userID)
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	s.clients[c.ConnID] = c
	s.mu.Unlock()
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ConnID)
	s.mu.Unlock()
}

// broadcastAll delivers an event to every connected client process-wide.
func (s *Server) broadcastAll(event string, payload any) {
	data, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Errorf("[gateway] encode %s failed: %v", event, err)
		return
	}
	s.mu.RLock()
	members := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		members = append(members, c)
	}
	s.mu.RUnlock()
	for _, c := range members {
		c.enqueue(data)
	}
}

// emitTo delivers an event to a single connection only.
func (s *Server) emitTo(c *Client, event string, payload any) {
	data, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Errorf("[gateway] encode %s failed: %v", event, err)
		return
	}
	c.enqueue(data)
}
