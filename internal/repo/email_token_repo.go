package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
)

type EmailToken struct {
	ID        interface{}        `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Token     string             `bson:"token"`      // opaque (random base64url)
	Purpose   string             `bson:"purpose"`    // "verify" | "reset"
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index on this field
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	// ContinueURL is where a confirmed verification link redirects.
	ContinueURL string `bson:"continue_url,omitempty"`
}

func (s *Store) EnsureEmailTokenIndexes(ctx context.Context) error {
	_, err := s.colEmailTokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expire"),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_token"),
		},
	})
	return err
}

func (s *Store) CreateEmailToken(ctx context.Context, et EmailToken) (err error) {
	sp, ctx := startSpan(ctx, "mongo.email_token.insert",
		tracer.Tag("purpose", et.Purpose),
		tracer.Tag("user_id", et.UserID.Hex()),
	)
	defer func() { finish(sp, err) }()

	et.CreatedAt = time.Now().UTC()
	_, err = s.colEmailTokens.InsertOne(ctx, et)
	return err
}

// UseEmailToken consumes a token once. Unknown, used or expired tokens return ErrNotFound.
func (s *Store) UseEmailToken(ctx context.Context, token, purpose string) (_ *EmailToken, err error) {
	sp, ctx := startSpan(ctx, "mongo.email_token.consume", tracer.Tag("purpose", purpose))
	defer func() { finish(sp, err) }()

	now := time.Now().UTC()
	res := s.colEmailTokens.FindOneAndUpdate(
		ctx,
		bson.M{"token": token, "purpose": purpose, "used_at": bson.M{"$exists": false}, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"used_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var et EmailToken
	if err = res.Decode(&et); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &et, nil
}
