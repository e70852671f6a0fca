package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MessageCollection = "messages"

// Message carries exactly one content field in practice (text, image,
// video, audio or location); the rest stay empty.
type Message struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	ConversationID primitive.ObjectID   `bson:"conversationId" json:"conversationId"`
	User           primitive.ObjectID   `bson:"user" json:"user"`
	Text           string               `bson:"text,omitempty" json:"text,omitempty"`
	Image          string               `bson:"image,omitempty" json:"image,omitempty"`
	Video          string               `bson:"video,omitempty" json:"video,omitempty"`
	Audio          string               `bson:"audio,omitempty" json:"audio,omitempty"`
	Location       string               `bson:"location,omitempty" json:"location,omitempty"`
	SeenBy         []primitive.ObjectID `bson:"seenBy,omitempty" json:"seenBy,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

// PreviewText is the short description used for push notifications and
// conversation lists.
func (m *Message) PreviewText() string {
	switch {
	case m.Video != "":
		return "Video"
	case m.Image != "":
		return "image"
	case m.Audio != "":
		return "Sound"
	case m.Location != "":
		return "Location"
	default:
		return m.Text
	}
}

// SeenByUser reports whether uid is recorded in SeenBy.
func (m *Message) SeenByUser(uid primitive.ObjectID) bool {
	for _, id := range m.SeenBy {
		if id == uid {
			return true
		}
	}
	return false
}
