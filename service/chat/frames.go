package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Event names on the realtime transport. Inbound and outbound share one
// namespace, mirroring the client protocol.
const (
	EventChat                = "chat"
	EventRefreshConversation = "refreshConversation"
	EventCreateChat          = "createChat"
	EventNewChat             = "newChat"
	EventQrLogin             = "qrLogin"
	EventQrLoginToken        = "qrLoginToken"
	EventIsRecipientOnline   = "isRecipientOnline"
	EventOnline              = "online"
	EventOffline             = "offline"
	EventUserOnline          = "userOnline"
	EventUserOffline         = "userOffline"
	EventUserTyping          = "userTyping"
)

// Frame is one event on the wire: {"event": "...", "data": ...}.
// Data stays raw so unknown fields pass through unchanged.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame without event")
	}
	return f, nil
}

func EncodeFrame(event string, payload any) ([]byte, error) {
	var (
		data json.RawMessage
		err  error
	)
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		data, err = json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "marshal payload")
		}
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// chatPayload is the inbound `chat` event. Only recipientIds is interpreted;
// the rest of the message is relayed verbatim.
type chatPayload struct {
	Message json.RawMessage `json:"message"`
}

type chatMessage struct {
	RecipientIDs []string `json:"recipientIds"`
}

// createChatPayload is the inbound `createChat` event. The creator is
// excluded from the fan-out by id; the full payload is relayed.
type createChatPayload struct {
	Users []chatParticipant `json:"users"`
}

type chatParticipant struct {
	ID string `json:"_id"`
}

// qrLoginPayload is the inbound `qrLogin` event.
type qrLoginPayload struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// qrTokenPayload is the outbound `qrLoginToken` event.
type qrTokenPayload struct {
	Token string `json:"token"`
}
