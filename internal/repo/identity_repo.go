package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var ErrEmailExists = errors.New("email already registered")

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Store) CreateIdentity(ctx context.Context, u *domain.Identity) (err error) {
	sp, ctx := startSpan(ctx, "mongo.identity.insert", tracer.Tag("provider", u.Provider))
	defer func() { finish(sp, err) }()

	u.Email = normalizeEmail(u.Email)
	u.CreatedAt = time.Now().UTC()
	res, err := s.colIdentities.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrEmailExists
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// FindIdentityByEmail returns nil, nil when no identity uses the address.
func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return s.findIdentity(ctx, "mongo.identity.by_email", bson.M{"email": normalizeEmail(email)})
}

func (s *Store) FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findIdentity(ctx, "mongo.identity.by_id", bson.M{"_id": oid})
}

func (s *Store) FindIdentityByExternal(ctx context.Context, provider, externalID string) (*domain.Identity, error) {
	return s.findIdentity(ctx, "mongo.identity.by_external", bson.M{"provider": provider, "external_id": externalID})
}

func (s *Store) findIdentity(ctx context.Context, op string, filter bson.M) (_ *domain.Identity, err error) {
	sp, ctx := startSpan(ctx, op)
	defer func() { finish(sp, err) }()

	var u domain.Identity
	err = s.colIdentities.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetIdentityVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.updateIdentity(ctx, "mongo.identity.verify", id, bson.M{"verified": true})
}

func (s *Store) SetIdentityPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateIdentity(ctx, "mongo.identity.password", id, bson.M{"password_hash": hash})
}

func (s *Store) LinkExternal(ctx context.Context, id primitive.ObjectID, provider, externalID string) error {
	return s.updateIdentity(ctx, "mongo.identity.link", id, bson.M{"provider": provider, "external_id": externalID, "verified": true})
}

func (s *Store) updateIdentity(ctx context.Context, op string, id primitive.ObjectID, set bson.M) (err error) {
	sp, ctx := startSpan(ctx, op)
	defer func() { finish(sp, err) }()

	res, err := s.colIdentities.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIdentity also drops the identity's outstanding email tokens.
func (s *Store) DeleteIdentity(ctx context.Context, id primitive.ObjectID) (err error) {
	sp, ctx := startSpan(ctx, "mongo.identity.delete")
	defer func() { finish(sp, err) }()

	if _, err = s.colEmailTokens.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return err
	}
	res, err := s.colIdentities.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
