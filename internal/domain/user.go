package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Identity is the account held by the local identity provider (collection "identities").
// It is separate from Record: deleting the preference record never touches it and vice versa.
type Identity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email"         json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Name         string             `bson:"name"          json:"name"`
	Provider     string             `bson:"provider"      json:"provider"`    // "password" | "google"
	ExternalID   string             `bson:"external_id"   json:"external_id"` // Google sub
	Verified     bool               `bson:"verified"      json:"verified"`
	CreatedAt    time.Time          `bson:"created_at"    json:"created_at"`
}
