package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatter/module/user/model"
	"chatter/tools/errs"
)

// profileProjection hides what other users must never see.
var profileProjection = bson.M{"contacts": 0, "blocked": 0, "blockedFrom": 0, "password": 0}

type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection(model.Collection)}
}

// Create inserts the user and fills in its generated id.
func (s *Store) Create(ctx context.Context, u *model.User) error {
	u.CreatedAt = time.Now()
	res, err := s.c.InsertOne(ctx, u)
	if err != nil {
		return errs.WrapMsg(err, "insert user")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// FindByLogin looks a user up by email or phone, whichever is set.
func (s *Store) FindByLogin(ctx context.Context, email, phone string) (*model.User, error) {
	query := bson.M{}
	if email != "" {
		query["email"] = email
	} else if phone != "" {
		query["phone"] = phone
	} else {
		return nil, errs.New("email or phone required")
	}
	var u model.User
	err := s.c.FindOne(ctx, query).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user")
	}
	return &u, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user by id")
	}
	return &u, nil
}

// PublicProfile returns the trimmed view of one user.
func (s *Store) PublicProfile(ctx context.Context, id primitive.ObjectID) (*model.Profile, error) {
	var p model.Profile
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(profileProjection)).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find profile")
	}
	return &p, nil
}

// OwnProfile is the caller's own record (sans password) with contacts and
// block lists resolved to profiles.
type OwnProfile struct {
	model.User
	ContactProfiles []model.Profile `json:"contactProfiles,omitempty"`
	BlockedProfiles []model.Profile `json:"blockedProfiles,omitempty"`
}

func (s *Store) Profile(ctx context.Context, id primitive.ObjectID) (*OwnProfile, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	u.Password = ""
	out := &OwnProfile{User: *u}
	if out.ContactProfiles, err = s.profiles(ctx, u.Contacts); err != nil {
		return nil, err
	}
	if out.BlockedProfiles, err = s.profiles(ctx, u.Blocked); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) profiles(ctx context.Context, ids []primitive.ObjectID) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(profileProjection))
	if err != nil {
		return nil, errs.WrapMsg(err, "find profiles")
	}
	var out []model.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode profiles")
	}
	return out, nil
}

// Search matches name/phone/email case-insensitively, excluding the caller
// and anyone in either block direction.
func (s *Store) Search(ctx context.Context, q string, self primitive.ObjectID) ([]model.Profile, error) {
	me, err := s.FindByID(ctx, self)
	if err != nil {
		return nil, err
	}
	exclude := []primitive.ObjectID{self}
	if me != nil {
		exclude = append(exclude, me.Blocked...)
		exclude = append(exclude, me.BlockedFrom...)
	}
	rx := bson.M{"$regex": q, "$options": "i"}
	cur, err := s.c.Find(ctx, bson.M{
		"$or": []bson.M{{"name": rx}, {"phone": rx}, {"email": rx}},
		"_id": bson.M{"$nin": exclude},
	}, options.Find().SetProjection(profileProjection))
	if err != nil {
		return nil, errs.WrapMsg(err, "search users")
	}
	var out []model.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode search")
	}
	return out, nil
}

// Update applies the given fields and returns the fresh record.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*model.User, error) {
	var u model.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After).
			SetProjection(bson.M{"password": 0}),
	).Decode(&u)
	if err != nil {
		return nil, errs.WrapMsg(err, "update user")
	}
	return &u, nil
}

func (s *Store) SetAvatar(ctx context.Context, id primitive.ObjectID, path string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"avatar": path}})
	return errs.WrapMsg(err, "set avatar")
}

// Block severs the contact link both ways and records both block directions.
func (s *Store) Block(ctx context.Context, self, target primitive.ObjectID) error {
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": target},
		bson.M{"$addToSet": bson.M{"blockedFrom": self}, "$pull": bson.M{"contacts": self}}); err != nil {
		return errs.WrapMsg(err, "block target")
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": self},
		bson.M{"$addToSet": bson.M{"blocked": target}, "$pull": bson.M{"contacts": target}}); err != nil {
		return errs.WrapMsg(err, "block self side")
	}
	return nil
}

func (s *Store) Unblock(ctx context.Context, self, target primitive.ObjectID) error {
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": target},
		bson.M{"$pull": bson.M{"blockedFrom": self}}); err != nil {
		return errs.WrapMsg(err, "unblock target")
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": self},
		bson.M{"$pull": bson.M{"blocked": target}}); err != nil {
		return errs.WrapMsg(err, "unblock self side")
	}
	return nil
}

// AddContacts cross-adds the two users to each other's contact lists.
func (s *Store) AddContacts(ctx context.Context, a, b primitive.ObjectID) error {
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": a},
		bson.M{"$addToSet": bson.M{"contacts": b}}); err != nil {
		return errs.WrapMsg(err, "add contact")
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": b},
		bson.M{"$addToSet": bson.M{"contacts": a}}); err != nil {
		return errs.WrapMsg(err, "add contact")
	}
	return nil
}

func (s *Store) AddDevice(ctx context.Context, id primitive.ObjectID, device string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"devices": device}})
	return errs.WrapMsg(err, "add device")
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return errs.WrapMsg(err, "delete user")
}
