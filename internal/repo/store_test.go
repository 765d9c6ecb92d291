package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/repo"
)

// backend is the surface shared by *repo.Store and *repo.Memory.
type backend interface {
	CreateIdentity(ctx context.Context, u *domain.Identity) error
	FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error)
	SetIdentityVerified(ctx context.Context, id primitive.ObjectID) error
	DeleteIdentity(ctx context.Context, id primitive.ObjectID) error
	CreateEmailToken(ctx context.Context, et repo.EmailToken) error
	UseEmailToken(ctx context.Context, token, purpose string) (*repo.EmailToken, error)
	GetRecord(ctx context.Context, uid string) (*domain.Record, error)
	EnsureRecord(ctx context.Context, uid string, p domain.Profile, initial []string) error
	SavePreferences(ctx context.Context, uid string, p domain.PreferenceSet) error
	UpdateRecord(ctx context.Context, uid string, f repo.Fields) error
	DeleteRecord(ctx context.Context, uid string) error
	FindRecordByEmail(ctx context.Context, email string) ([]domain.Record, error)
	ListSubscribers(ctx context.Context) ([]domain.Record, error)
	InsertJob(ctx context.Context, j *domain.Job) (bool, error)
	FindJob(ctx context.Context, jobID string) (*domain.Job, error)
}

func newMongoStore(t *testing.T) *repo.Store {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	mc, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:6"))
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}
	store, err := repo.NewStore(ctx, uri, "dailyjobs_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return store
}

func TestMongoStore(t *testing.T) {
	s := newMongoStore(t)
	t.Run("identities", func(t *testing.T) { testIdentities(t, s) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, s) })
	t.Run("records", func(t *testing.T) { testRecords(t, s) })
	t.Run("jobs", func(t *testing.T) { testJobs(t, s) })
}

func TestMemoryStore(t *testing.T) {
	t.Run("identities", func(t *testing.T) { testIdentities(t, repo.NewMemory()) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, repo.NewMemory()) })
	t.Run("records", func(t *testing.T) { testRecords(t, repo.NewMemory()) })
	t.Run("jobs", func(t *testing.T) { testJobs(t, repo.NewMemory()) })
}

func TestMemoryFailRecords(t *testing.T) {
	m := repo.NewMemory()
	m.FailRecords = errors.New("unavailable")
	ctx := context.Background()
	if _, err := m.GetRecord(ctx, "u1"); err == nil {
		t.Fatal("GetRecord should fail")
	}
	if err := m.SavePreferences(ctx, "u1", domain.PreferenceSet{}); err == nil {
		t.Fatal("SavePreferences should fail")
	}
	if m.Writes != 0 {
		t.Fatalf("writes = %d, want 0", m.Writes)
	}
}

func testIdentities(t *testing.T, s backend) {
	ctx := context.Background()
	u := &domain.Identity{Email: " Ada@Example.com ", Name: "Ada", Provider: domain.ProviderPassword, PasswordHash: "x"}
	if err := s.CreateIdentity(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID.IsZero() {
		t.Fatal("id not assigned")
	}
	dup := &domain.Identity{Email: "ada@example.com", Provider: domain.ProviderPassword}
	if err := s.CreateIdentity(ctx, dup); !errors.Is(err, repo.ErrEmailExists) {
		t.Fatalf("duplicate email: got %v", err)
	}

	got, err := s.FindIdentityByEmail(ctx, "ADA@example.com")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("find by email: %+v %v", got, err)
	}
	if got.Verified {
		t.Fatal("new identity must be unverified")
	}
	if err := s.SetIdentityVerified(ctx, u.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, _ = s.FindIdentityByID(ctx, u.ID.Hex())
	if got == nil || !got.Verified {
		t.Fatalf("after verify: %+v", got)
	}

	if got, err := s.FindIdentityByEmail(ctx, "nobody@example.com"); got != nil || err != nil {
		t.Fatalf("missing identity: %+v %v", got, err)
	}
	if got, err := s.FindIdentityByID(ctx, "not-an-object-id"); got != nil || err != nil {
		t.Fatalf("malformed id: %+v %v", got, err)
	}

	if err := s.DeleteIdentity(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.SetIdentityVerified(ctx, u.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update deleted identity: got %v", err)
	}
}

func testTokens(t *testing.T, s backend) {
	ctx := context.Background()
	uid := primitive.NewObjectID()
	now := time.Now().UTC()
	live := repo.EmailToken{UserID: uid, Token: "live", Purpose: repo.PurposeVerify,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now, ContinueURL: "https://dailyjobs.test/"}
	expired := repo.EmailToken{UserID: uid, Token: "old", Purpose: repo.PurposeVerify,
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour)}
	for _, et := range []repo.EmailToken{live, expired} {
		if err := s.CreateEmailToken(ctx, et); err != nil {
			t.Fatalf("create token: %v", err)
		}
	}

	if _, err := s.UseEmailToken(ctx, "live", repo.PurposeReset); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("wrong purpose: got %v", err)
	}
	et, err := s.UseEmailToken(ctx, "live", repo.PurposeVerify)
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	if et.UserID != uid || et.ContinueURL != "https://dailyjobs.test/" {
		t.Fatalf("token = %+v", et)
	}
	if _, err := s.UseEmailToken(ctx, "live", repo.PurposeVerify); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second use: got %v", err)
	}
	if _, err := s.UseEmailToken(ctx, "old", repo.PurposeVerify); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expired: got %v", err)
	}
}

func testRecords(t *testing.T, s backend) {
	ctx := context.Background()
	if r, err := s.GetRecord(ctx, "u1"); r != nil || err != nil {
		t.Fatalf("absent record: %+v %v", r, err)
	}
	if err := s.UpdateRecord(ctx, "u1", repo.Fields{"name": "x"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update absent: got %v", err)
	}

	p := domain.Profile{Email: "ada@example.com", Name: "Ada"}
	if err := s.EnsureRecord(ctx, "u1", p, []string{"google", "meta"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	r, err := s.GetRecord(ctx, "u1")
	if err != nil || r == nil {
		t.Fatalf("get: %+v %v", r, err)
	}
	if len(r.Preferences) != 2 || r.JobTypes == nil || len(r.JobTypes) != 0 {
		t.Fatalf("initial record = %+v", r)
	}
	if r.CreatedAt == nil || r.LastSignIn == nil {
		t.Fatalf("timestamps missing: %+v", r)
	}

	want := domain.PreferenceSet{
		Preferences:         []string{"stripe"},
		JobTypes:            []string{"product"},
		ExperienceLevels:    []string{"mid", "senior"},
		LocationPreferences: []string{"any"},
	}
	if err := s.SavePreferences(ctx, "u1", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	// a later sign-in refreshes the profile but keeps preferences
	p.Verified = true
	if err := s.EnsureRecord(ctx, "u1", p, []string{"ignored"}); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	r, _ = s.GetRecord(ctx, "u1")
	got := r.PreferenceSet()
	if len(got.Preferences) != 1 || got.Preferences[0] != "stripe" ||
		len(got.ExperienceLevels) != 2 || got.LocationPreferences[0] != "any" {
		t.Fatalf("preferences = %+v", got)
	}
	if !r.EmailVerified || r.UpdatedAt == nil {
		t.Fatalf("record = %+v", r)
	}

	if err := s.EnsureRecord(ctx, "u2", domain.Profile{Email: "bob@example.com"}, nil); err != nil {
		t.Fatalf("ensure u2: %v", err)
	}
	subs, err := s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].UID != "u1" {
		t.Fatalf("subscribers = %+v", subs)
	}
	byEmail, err := s.FindRecordByEmail(ctx, "BOB@example.com")
	if err != nil || len(byEmail) != 1 || byEmail[0].Name != "User" {
		t.Fatalf("by email = %+v %v", byEmail, err)
	}

	if err := s.DeleteRecord(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if r, _ := s.GetRecord(ctx, "u1"); r != nil {
		t.Fatalf("record survived delete: %+v", r)
	}
}

func testJobs(t *testing.T, s backend) {
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j := &domain.Job{
		JobID: "stripe_123", Company: "stripe", CompanyName: "Stripe",
		Title: "Senior Product Manager", Location: "Remote, US", Countries: []string{"remote", "united_states"},
		URL: "https://boards.greenhouse.io/stripe/jobs/123", RoleType: "product", ExperienceLevel: "senior",
		Board: "greenhouse", LastUpdated: updated,
	}
	isNew, err := s.InsertJob(ctx, j)
	if err != nil || !isNew {
		t.Fatalf("first insert: new=%v err=%v", isNew, err)
	}
	if j.AddedToDB.IsZero() {
		t.Fatal("added_to_db not set")
	}

	again := *j
	again.Title = "renamed"
	isNew, err = s.InsertJob(ctx, &again)
	if err != nil || isNew {
		t.Fatalf("duplicate insert: new=%v err=%v", isNew, err)
	}

	got, err := s.FindJob(ctx, "stripe_123")
	if err != nil || got == nil {
		t.Fatalf("find: %+v %v", got, err)
	}
	if got.Title != "Senior Product Manager" || len(got.Countries) != 2 || !got.LastUpdated.Equal(updated) {
		t.Fatalf("stored job = %+v", got)
	}
	if got, err := s.FindJob(ctx, "nope"); got != nil || err != nil {
		t.Fatalf("missing job: %+v %v", got, err)
	}
}
