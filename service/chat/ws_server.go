package chat

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatter/logger"
	"chatter/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and drives the connection's read loop.
// Identity hints ride the handshake query: conversationId, userId, secret.
// Each present hint triggers a room join; userId additionally registers
// presence and echoes userOnline back to this connection only.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	client := newClient(ids.Generate(), ws)
	client.ConversationID = c.Query("conversationId")
	client.UserID = c.Query("userId")
	client.Secret = c.Query("secret")

	s.addClient(client)
	go client.writePump()

	if client.ConversationID != "" {
		s.rooms.Join(client.ConversationID, client)
	}
	if client.Secret != "" {
		s.rooms.Join(client.Secret, client)
	}
	if client.UserID != "" {
		s.rooms.Join(client.UserID, client)
		s.registry.Register(client.ConnID, client.UserID)
		s.emitTo(client, EventUserOnline, client.UserID)
	}

	logger.Infof("[ws] connected conn=%s user=%s conversation=%s",
		client.ConnID, client.UserID, client.ConversationID)

	s.readLoop(client)

	// Disconnect: registry and room cleanup only. No offline broadcast;
	// peers learn about silent disconnects through isRecipientOnline.
	s.registry.Unregister(client.ConnID)
	s.rooms.LeaveAll(client)
	s.removeClient(client)
	client.close()
	logger.Infof("[ws] disconnected conn=%s user=%s", client.ConnID, client.UserID)
}

// readLoop processes frames from one connection in arrival order. No
// ordering is guaranteed across connections.
func (s *Server) readLoop(client *Client) {
	for {
		mt, data, err := client.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, err)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, err, sample)
			continue
		}
		s.disp.Dispatch(s, client, frame)
	}
}
