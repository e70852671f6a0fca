package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"chatter/logger"
	"chatter/tools/ids"
	security "chatter/tools/security"
)

func (s *Server) registerHandlers() {
	s.disp.Register(EventChat, handleChat)
	s.disp.Register(EventCreateChat, handleCreateChat)
	s.disp.Register(EventQrLogin, handleQrLogin)
	s.disp.Register(EventIsRecipientOnline, handleIsRecipientOnline)
	s.disp.Register(EventOnline, handleOnline)
	s.disp.Register(EventOffline, handleOffline)
	s.disp.Register(EventUserTyping, handleUserTyping)
}

// handleChat relays a freshly persisted message: first to the sender's
// conversation room (excluding the sender), then a refreshConversation to
// each recipient's user room. The room broadcast happens before the
// per-recipient fan-out.
func handleChat(s *Server, c *Client, data json.RawMessage) {
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Message) == 0 {
		return
	}
	if c.ConversationID != "" {
		s.rooms.Broadcast(c.ConversationID, EventChat, data, c.ConnID)
	}
	var msg chatMessage
	if err := json.Unmarshal(payload.Message, &msg); err != nil {
		return
	}
	for _, rid := range msg.RecipientIDs {
		s.rooms.Emit(rid, EventRefreshConversation, payload.Message)
	}
}

// handleCreateChat announces a new conversation to every participant except
// its creator.
func handleCreateChat(s *Server, c *Client, data json.RawMessage) {
	var payload createChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	recipients := lo.FilterMap(payload.Users, func(u chatParticipant, _ int) (string, bool) {
		return u.ID, u.ID != "" && u.ID != c.UserID
	})
	for _, rid := range recipients {
		s.rooms.Emit(rid, EventNewChat, data)
	}
}

// handleQrLogin mints a short-lived pairing token for the account shown in
// the QR code and emits it to the pairing-secret room only, so nothing but
// the device that displayed that exact code can see it. The embedded nonce
// is tracked single-use server-side.
func handleQrLogin(s *Server, c *Client, data json.RawMessage) {
	var payload qrLoginPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if payload.ID == "" || payload.Secret == "" {
		return
	}

	nonce := ids.Generate()
	if s.pairing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.pairing.Issue(ctx, nonce, s.pairingTTL); err != nil {
			logger.Errorf("[qrLogin] issue nonce failed: %v", err)
			return
		}
	}
	token, err := security.GeneratePairing(s.jwt, payload.ID, nonce, s.pairingTTL)
	if err != nil {
		logger.Errorf("[qrLogin] sign failed: %v", err)
		return
	}
	s.rooms.Emit(payload.Secret, EventQrLoginToken, qrTokenPayload{Token: token})
}

// handleIsRecipientOnline answers a presence query back to the requesting
// user's own room (all their devices), not just the asking connection.
func handleIsRecipientOnline(s *Server, c *Client, data json.RawMessage) {
	if c.UserID == "" {
		return
	}
	var recipientID string
	if err := json.Unmarshal(data, &recipientID); err != nil || recipientID == "" {
		return
	}
	s.rooms.Emit(c.UserID, EventIsRecipientOnline, s.registry.IsOnline(recipientID))
}

// handleOnline lets a user announce a presence transition without a full
// reconnect. The acting id is the connection's registered identity; a
// payload id is ignored so one user cannot announce for another.
func handleOnline(s *Server, c *Client, _ json.RawMessage) {
	if c.UserID == "" {
		return
	}
	s.registry.Register(c.ConnID, c.UserID)
	s.broadcastAll(EventUserOnline, c.UserID)
}

// handleOffline is the announced counterpart of handleOnline. It does not
// unregister the connection: only disconnect removes the registry entry.
func handleOffline(s *Server, c *Client, _ json.RawMessage) {
	if c.UserID == "" {
		return
	}
	s.broadcastAll(EventUserOffline, c.UserID)
}

// handleUserTyping relays the typing indicator to the sender's conversation
// room, excluding the sender. Without a conversation room it is a no-op.
func handleUserTyping(s *Server, c *Client, data json.RawMessage) {
	if c.ConversationID == "" {
		return
	}
	s.rooms.Broadcast(c.ConversationID, EventUserTyping, data, c.ConnID)
}
