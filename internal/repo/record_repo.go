package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type serverTimestamp struct{}

// ServerTimestamp in a field map is replaced by the database's current date on write.
var ServerTimestamp = serverTimestamp{}

// Fields is a partial record keyed by bson field name.
type Fields map[string]any

// split separates server-timestamp sentinels into a $currentDate document.
func (f Fields) split() (set bson.M, current bson.M) {
	set, current = bson.M{}, bson.M{}
	for k, v := range f {
		if _, ok := v.(serverTimestamp); ok {
			current[k] = true
			continue
		}
		set[k] = v
	}
	return set, current
}

func (f Fields) update() bson.M {
	set, current := f.split()
	up := bson.M{}
	if len(set) > 0 {
		up["$set"] = set
	}
	if len(current) > 0 {
		up["$currentDate"] = current
	}
	return up
}

// GetRecord returns nil, nil when the identity has no record yet.
func (s *Store) GetRecord(ctx context.Context, uid string) (_ *domain.Record, err error) {
	sp, ctx := startSpan(ctx, "mongo.record.get", tracer.Tag("uid", uid))
	defer func() { finish(sp, err) }()

	var r domain.Record
	err = s.colUsers.FindOne(ctx, bson.M{"_id": uid}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindRecordByEmail(ctx context.Context, email string) (_ []domain.Record, err error) {
	sp, ctx := startSpan(ctx, "mongo.record.by_email")
	defer func() { finish(sp, err) }()

	cur, err := s.colUsers.Find(ctx, bson.M{"email": normalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRecord writes fields to the record. merge=false replaces the whole document,
// merge=true only touches the given fields and creates the record when missing.
func (s *Store) SetRecord(ctx context.Context, uid string, f Fields, merge bool) (err error) {
	sp, ctx := startSpan(ctx, "mongo.record.set", tracer.Tag("uid", uid), tracer.Tag("merge", merge))
	defer func() { finish(sp, err) }()

	if merge {
		_, err = s.colUsers.UpdateOne(ctx, bson.M{"_id": uid}, f.update(), options.Update().SetUpsert(true))
		return err
	}
	set, current := f.split()
	now := time.Now().UTC()
	for k := range current {
		set[k] = now
	}
	set["_id"] = uid
	_, err = s.colUsers.ReplaceOne(ctx, bson.M{"_id": uid}, set, options.Replace().SetUpsert(true))
	return err
}

// UpdateRecord applies a partial update to an existing record; ErrNotFound if absent.
func (s *Store) UpdateRecord(ctx context.Context, uid string, f Fields) (err error) {
	sp, ctx := startSpan(ctx, "mongo.record.update", tracer.Tag("uid", uid))
	defer func() { finish(sp, err) }()

	res, err := s.colUsers.UpdateOne(ctx, bson.M{"_id": uid}, f.update())
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, uid string) (err error) {
	sp, ctx := startSpan(ctx, "mongo.record.delete", tracer.Tag("uid", uid))
	defer func() { finish(sp, err) }()

	_, err = s.colUsers.DeleteOne(ctx, bson.M{"_id": uid})
	return err
}

// SavePreferences writes all four preference sets as one update. Last writer wins.
func (s *Store) SavePreferences(ctx context.Context, uid string, p domain.PreferenceSet) error {
	return s.SetRecord(ctx, uid, Fields{
		"preferences":         nonNil(p.Preferences),
		"jobTypes":            nonNil(p.JobTypes),
		"experienceLevels":    nonNil(p.ExperienceLevels),
		"locationPreferences": nonNil(p.LocationPreferences),
		"updatedAt":           ServerTimestamp,
	}, true)
}

// EnsureRecord creates the record with the given initial companies if absent,
// otherwise refreshes the profile mirror and leaves preferences untouched.
func (s *Store) EnsureRecord(ctx context.Context, uid string, p domain.Profile, initial []string) (err error) {
	sp, ctx := startSpan(ctx, "mongo.record.ensure", tracer.Tag("uid", uid))
	defer func() { finish(sp, err) }()

	name := p.Name
	if name == "" {
		name = "User"
	}
	now := time.Now().UTC()
	_, err = s.colUsers.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{
		"$set": bson.M{
			"email":         normalizeEmail(p.Email),
			"name":          name,
			"emailVerified": p.Verified,
		},
		"$currentDate": bson.M{"lastSignIn": true},
		"$setOnInsert": bson.M{
			"preferences":         nonNil(initial),
			"jobTypes":            []string{},
			"experienceLevels":    []string{},
			"locationPreferences": []string{},
			"createdAt":           now,
		},
	}, options.Update().SetUpsert(true))
	return err
}

// ListSubscribers returns verified records with at least one company selected.
func (s *Store) ListSubscribers(ctx context.Context) (_ []domain.Record, err error) {
	sp, ctx := startSpan(ctx, "mongo.record.subscribers")
	defer func() { finish(sp, err) }()

	cur, err := s.colUsers.Find(ctx, bson.M{
		"emailVerified": true,
		"email":         bson.M{"$gt": ""},
		"preferences.0": bson.M{"$exists": true},
	}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
