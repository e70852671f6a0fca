package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ConversationCollection = "conversations"

// Conversation is a direct chat (two users) or a group (isGroup, admin,
// name, image). Messages live in their own collection keyed by
// conversationId.
type Conversation struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name      string               `bson:"name,omitempty" json:"name,omitempty"`
	IsGroup   bool                 `bson:"isGroup,omitempty" json:"isGroup,omitempty"`
	Admin     primitive.ObjectID   `bson:"admin,omitempty" json:"admin,omitempty"`
	Image     string               `bson:"image,omitempty" json:"image,omitempty"`
	Users     []primitive.ObjectID `bson:"users" json:"users"`
	MutedBy   []primitive.ObjectID `bson:"mutedBy,omitempty" json:"mutedBy,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}
