package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatter/logger"
)

const (
	sendQueueSize = 256
	writeDeadline = 5 * time.Second
)

// Client is one live websocket session. A user may hold several clients at
// once (multi-device); each is tracked separately. The handshake hints are
// fixed for the connection's lifetime: a client switching conversations
// reconnects rather than migrating rooms.
type Client struct {
	ConnID         string
	UserID         string // empty until the handshake carried userId
	ConversationID string // conversation room auto-joined at connect
	Secret         string // QR pairing room auto-joined at connect

	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(connID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// enqueue hands a pre-encoded frame to the writer goroutine. A full queue
// means a slow client; the frame is dropped rather than blocking the
// dispatcher (the transport promises no delivery guarantees). Enqueue on a
// closed client is a silent no-op: a broadcast may race a disconnect.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		logger.Warnf("[ws] send queue full, drop frame conn=%s user=%s", c.ConnID, c.UserID)
		return false
	}
}

// writePump is the single writer for the connection; gorilla/websocket
// forbids concurrent writes.
func (c *Client) writePump() {
	defer func() { _ = c.ws.Close() }()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[ws] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		}
	}
}

// close stops the write pump, which closes the socket on exit.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
