package chat

import (
	"encoding/json"

	"chatter/logger"
)

// HandlerFunc processes one inbound event for one connection. Handlers have
// no error return: the transport has no error path back to the sender, so a
// malformed payload degrades to a no-op and is at most logged.
type HandlerFunc func(s *Server, c *Client, data json.RawMessage)

// Dispatcher routes inbound frames to their event handler. One panicking
// handler affects only that event's delivery, never the connection or the
// process.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Dispatch(s *Server, c *Client, f *Frame) {
	h, ok := d.handlers[f.Event]
	if !ok {
		logger.Debug("no handler for event " + f.Event)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[dispatch] handler panic event=%s conn=%s: %v", f.Event, c.ConnID, r)
		}
	}()
	h(s, c, f.Data)
}
