package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const Collection = "users"

// User is the account master record. Presence is never stored here; it is
// derived from live gateway connections.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string               `bson:"name" json:"name"`
	Avatar       string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Phone        string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Email        string               `bson:"email,omitempty" json:"email,omitempty"`
	Password     string               `bson:"password" json:"-"`
	LanguageCode string               `bson:"languageCode,omitempty" json:"languageCode,omitempty"`
	Contacts     []primitive.ObjectID `bson:"contacts,omitempty" json:"contacts,omitempty"`
	Blocked      []primitive.ObjectID `bson:"blocked,omitempty" json:"blocked,omitempty"`
	BlockedFrom  []primitive.ObjectID `bson:"blockedFrom,omitempty" json:"blockedFrom,omitempty"`
	Devices      []string             `bson:"devices,omitempty" json:"devices,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}

// Profile is the trimmed view other users may see: no contacts, no block
// lists, no password.
type Profile struct {
	ID     primitive.ObjectID `bson:"_id" json:"_id"`
	Name   string             `bson:"name" json:"name"`
	Avatar string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Phone  string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email  string             `bson:"email,omitempty" json:"email,omitempty"`
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), 8)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u *User) ValidatePassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
