package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chatmodel "chatter/module/chat/model"
	usermodel "chatter/module/user/model"
	"chatter/tools/errs"
)

const messagePageSize = 20

// userPreview is what conversation views expose of a participant.
var userPreview = bson.M{"name": 1, "avatar": 1}

type Store struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	users         *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		conversations: db.Collection(chatmodel.ConversationCollection),
		messages:      db.Collection(chatmodel.MessageCollection),
		users:         db.Collection(usermodel.Collection),
	}
}

// ConversationView is a conversation with participants resolved to
// name/avatar previews.
type ConversationView struct {
	chatmodel.Conversation `bson:",inline"`
	UserProfiles           []usermodel.Profile `bson:"-" json:"userProfiles,omitempty"`
}

// MessageView is a message with its sender resolved.
type MessageView struct {
	chatmodel.Message `bson:",inline"`
	UserProfile       *usermodel.Profile `bson:"-" json:"userProfile,omitempty"`
}

// Preview is one row of the conversation list: the latest message plus how
// many of the last fetched messages the caller has not seen yet.
type Preview struct {
	ConversationView
	Message             *MessageView `json:"message,omitempty"`
	UnseenMessageLength int          `json:"unseenMessageLength"`
}

// ListForUser returns every conversation the user participates in, each
// with its latest message and unseen count (computed over the newest 10).
func (s *Store) ListForUser(ctx context.Context, uid primitive.ObjectID) ([]Preview, error) {
	cur, err := s.conversations.Find(ctx, bson.M{"users": uid})
	if err != nil {
		return nil, errs.WrapMsg(err, "list conversations")
	}
	var convs []chatmodel.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, errs.WrapMsg(err, "decode conversations")
	}

	out := make([]Preview, 0, len(convs))
	for _, conv := range convs {
		view, err := s.populateConversation(ctx, conv)
		if err != nil {
			return nil, err
		}
		msgs, err := s.latestMessages(ctx, conv.ID, 10)
		if err != nil {
			return nil, err
		}
		p := Preview{ConversationView: view}
		if len(msgs) > 0 {
			p.Message = &msgs[0]
		}
		p.UnseenMessageLength = lo.CountBy(msgs, func(m MessageView) bool {
			return m.User != uid && !m.SeenByUser(uid)
		})
		out = append(out, p)
	}
	return out, nil
}

// Get returns one conversation with its first message page.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID, page int64) (*ConversationView, []MessageView, error) {
	var conv chatmodel.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errs.WrapMsg(err, "find conversation")
	}
	view, err := s.populateConversation(ctx, conv)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.Messages(ctx, id, page)
	if err != nil {
		return nil, nil, err
	}
	return &view, msgs, nil
}

// Messages returns one page (newest first) with senders resolved.
func (s *Store) Messages(ctx context.Context, id primitive.ObjectID, page int64) ([]MessageView, error) {
	cur, err := s.messages.Find(ctx, bson.M{"conversationId": id},
		options.Find().
			SetSort(bson.M{"createdAt": -1}).
			SetSkip(messagePageSize*page).
			SetLimit(messagePageSize))
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages")
	}
	var msgs []chatmodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}
	return s.populateMessages(ctx, msgs)
}

// Create opens a direct conversation between the two users.
func (s *Store) Create(ctx context.Context, self, recipient primitive.ObjectID) (*ConversationView, error) {
	conv := chatmodel.Conversation{
		Users:     []primitive.ObjectID{self, recipient},
		CreatedAt: time.Now(),
	}
	res, err := s.conversations.InsertOne(ctx, conv)
	if err != nil {
		return nil, errs.WrapMsg(err, "create conversation")
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	view, err := s.populateConversation(ctx, conv)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateGroup opens a group conversation with the creator as admin.
func (s *Store) CreateGroup(ctx context.Context, admin primitive.ObjectID, name string, participants []primitive.ObjectID) (*ConversationView, error) {
	conv := chatmodel.Conversation{
		Name:      name,
		IsGroup:   true,
		Admin:     admin,
		Users:     append([]primitive.ObjectID{admin}, participants...),
		CreatedAt: time.Now(),
	}
	res, err := s.conversations.InsertOne(ctx, conv)
	if err != nil {
		return nil, errs.WrapMsg(err, "create group")
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	view, err := s.populateConversation(ctx, conv)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Exists reports whether a direct conversation between the two users is
// already open, in either participant order.
func (s *Store) Exists(ctx context.Context, self, recipient primitive.ObjectID) (bool, primitive.ObjectID, error) {
	var conv struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.conversations.FindOne(ctx, bson.M{
		"$or": []bson.M{
			{"users": []primitive.ObjectID{self, recipient}},
			{"users": []primitive.ObjectID{recipient, self}},
		},
		"isGroup": bson.M{"$ne": true},
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return false, primitive.NilObjectID, nil
	}
	if err != nil {
		return false, primitive.NilObjectID, errs.WrapMsg(err, "conversation exists")
	}
	return true, conv.ID, nil
}

// Reply persists a message and returns it with the sender resolved.
func (s *Store) Reply(ctx context.Context, conversationID, sender primitive.ObjectID, msg chatmodel.Message) (*MessageView, error) {
	msg.ID = primitive.NilObjectID
	msg.ConversationID = conversationID
	msg.User = sender
	msg.CreatedAt = time.Now()
	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return nil, errs.WrapMsg(err, "insert message")
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	views, err := s.populateMessages(ctx, []chatmodel.Message{msg})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// NotifyTargets are the participants who should get a push for a new
// message: everyone except the sender and anyone who muted the
// conversation.
func (s *Store) NotifyTargets(ctx context.Context, conversationID, sender primitive.ObjectID) ([]string, error) {
	var conv chatmodel.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": conversationID},
		options.FindOne().SetProjection(bson.M{"users": 1, "mutedBy": 1})).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find conversation for notify")
	}
	muted := lo.SliceToMap(conv.MutedBy, func(id primitive.ObjectID) (primitive.ObjectID, struct{}) {
		return id, struct{}{}
	})
	return lo.FilterMap(conv.Users, func(id primitive.ObjectID, _ int) (string, bool) {
		_, isMuted := muted[id]
		return id.Hex(), id != sender && !isMuted
	}), nil
}

// SetSeen marks the messages as seen by uid.
func (s *Store) SetSeen(ctx context.Context, messageIDs []primitive.ObjectID, uid primitive.ObjectID) error {
	_, err := s.messages.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": messageIDs}},
		bson.M{"$addToSet": bson.M{"seenBy": uid}})
	return errs.WrapMsg(err, "set seen")
}

func (s *Store) RemoveUser(ctx context.Context, conversationID, uid primitive.ObjectID) error {
	_, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID},
		bson.M{"$pull": bson.M{"users": uid}})
	return errs.WrapMsg(err, "remove participant")
}

func (s *Store) AddParticipants(ctx context.Context, conversationID primitive.ObjectID, participants []primitive.ObjectID) error {
	_, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID},
		bson.M{"$push": bson.M{"users": bson.M{"$each": participants}}})
	return errs.WrapMsg(err, "add participants")
}

func (s *Store) Rename(ctx context.Context, conversationID primitive.ObjectID, name string) error {
	_, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"name": name}})
	return errs.WrapMsg(err, "rename group")
}

func (s *Store) SetImage(ctx context.Context, conversationID primitive.ObjectID, path string) error {
	_, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"image": path}})
	return errs.WrapMsg(err, "set group image")
}

// MuteUnmute toggles the caller's membership in mutedBy. isMuted is the
// client's current state: true asks to unmute.
func (s *Store) MuteUnmute(ctx context.Context, conversationID, uid primitive.ObjectID, isMuted bool) error {
	op := "$addToSet"
	if isMuted {
		op = "$pull"
	}
	_, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID},
		bson.M{op: bson.M{"mutedBy": uid}})
	return errs.WrapMsg(err, "mute/unmute")
}

// Media lists the image messages of a conversation.
func (s *Store) Media(ctx context.Context, conversationID primitive.ObjectID) ([]chatmodel.Message, error) {
	cur, err := s.messages.Find(ctx, bson.M{
		"conversationId": conversationID,
		"image":          bson.M{"$exists": true, "$ne": ""},
	}, options.Find().SetProjection(bson.M{"image": 1}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find media")
	}
	var out []chatmodel.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode media")
	}
	return out, nil
}

// Delete removes a conversation and all its messages.
func (s *Store) Delete(ctx context.Context, conversationID primitive.ObjectID) error {
	if _, err := s.conversations.DeleteOne(ctx, bson.M{"_id": conversationID}); err != nil {
		return errs.WrapMsg(err, "delete conversation")
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{"conversationId": conversationID}); err != nil {
		return errs.WrapMsg(err, "delete conversation messages")
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, messageID primitive.ObjectID) error {
	_, err := s.messages.DeleteOne(ctx, bson.M{"_id": messageID})
	return errs.WrapMsg(err, "delete message")
}

func (s *Store) latestMessages(ctx context.Context, conversationID primitive.ObjectID, limit int64) ([]MessageView, error) {
	cur, err := s.messages.Find(ctx, bson.M{"conversationId": conversationID},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit))
	if err != nil {
		return nil, errs.WrapMsg(err, "find latest messages")
	}
	var msgs []chatmodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode latest messages")
	}
	return s.populateMessages(ctx, msgs)
}

func (s *Store) populateConversation(ctx context.Context, conv chatmodel.Conversation) (ConversationView, error) {
	profiles, err := s.profiles(ctx, conv.Users)
	if err != nil {
		return ConversationView{}, err
	}
	return ConversationView{Conversation: conv, UserProfiles: profiles}, nil
}

func (s *Store) populateMessages(ctx context.Context, msgs []chatmodel.Message) ([]MessageView, error) {
	senders := lo.Uniq(lo.Map(msgs, func(m chatmodel.Message, _ int) primitive.ObjectID {
		return m.User
	}))
	profiles, err := s.profiles(ctx, senders)
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(profiles, func(p usermodel.Profile) (primitive.ObjectID, usermodel.Profile) {
		return p.ID, p
	})
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := MessageView{Message: m}
		if p, ok := byID[m.User]; ok {
			view.UserProfile = &p
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Store) profiles(ctx context.Context, ids []primitive.ObjectID) ([]usermodel.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(userPreview))
	if err != nil {
		return nil, errs.WrapMsg(err, "find participant profiles")
	}
	var out []usermodel.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode participant profiles")
	}
	return out, nil
}
