package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process stand-in for Store, used by the dev server (MONGO_URI=memory) and tests.
// It implements the same methods with the same not-found conventions.
type Memory struct {
	mu         sync.Mutex
	identities map[primitive.ObjectID]domain.Identity
	records    map[string]domain.Record
	tokens     map[string]EmailToken
	jobs       map[string]domain.Job

	// FailRecords makes every record operation return this error.
	FailRecords error
	// Writes counts record writes (set, update, ensure, delete).
	Writes int
}

func NewMemory() *Memory {
	return &Memory{
		identities: map[primitive.ObjectID]domain.Identity{},
		records:    map[string]domain.Record{},
		tokens:     map[string]EmailToken{},
		jobs:       map[string]domain.Job{},
	}
}

func (m *Memory) Ping(ctx context.Context) error  { return nil }
func (m *Memory) Close(ctx context.Context) error { return nil }

func (m *Memory) CreateIdentity(ctx context.Context, u *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	for _, x := range m.identities {
		if x.Email == u.Email {
			return ErrEmailExists
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	m.identities[u.ID] = *u
	return nil
}

func (m *Memory) FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	email = normalizeEmail(email)
	return m.findIdentity(func(u domain.Identity) bool { return u.Email == email })
}

func (m *Memory) FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return m.findIdentity(func(u domain.Identity) bool { return u.ID == oid })
}

func (m *Memory) FindIdentityByExternal(ctx context.Context, provider, externalID string) (*domain.Identity, error) {
	return m.findIdentity(func(u domain.Identity) bool { return u.Provider == provider && u.ExternalID == externalID })
}

func (m *Memory) findIdentity(match func(domain.Identity) bool) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.identities {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) SetIdentityVerified(ctx context.Context, id primitive.ObjectID) error {
	return m.updateIdentity(id, func(u *domain.Identity) { u.Verified = true })
}

func (m *Memory) SetIdentityPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.updateIdentity(id, func(u *domain.Identity) { u.PasswordHash = hash })
}

func (m *Memory) LinkExternal(ctx context.Context, id primitive.ObjectID, provider, externalID string) error {
	return m.updateIdentity(id, func(u *domain.Identity) {
		u.Provider, u.ExternalID, u.Verified = provider, externalID, true
	})
}

func (m *Memory) updateIdentity(id primitive.ObjectID, fn func(*domain.Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	m.identities[id] = u
	return nil
}

func (m *Memory) DeleteIdentity(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return ErrNotFound
	}
	delete(m.identities, id)
	for k, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *Memory) CreateEmailToken(ctx context.Context, et EmailToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	et.CreatedAt = time.Now().UTC()
	m.tokens[et.Token] = et
	return nil
}

func (m *Memory) UseEmailToken(ctx context.Context, token, purpose string) (*EmailToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	et, ok := m.tokens[token]
	now := time.Now().UTC()
	if !ok || et.Purpose != purpose || et.UsedAt != nil || !et.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	et.UsedAt = &now
	m.tokens[token] = et
	return &et, nil
}

func (m *Memory) GetRecord(ctx context.Context, uid string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return nil, m.FailRecords
	}
	r, ok := m.records[uid]
	if !ok {
		return nil, nil
	}
	cp := copyRecord(r)
	return &cp, nil
}

func (m *Memory) FindRecordByEmail(ctx context.Context, email string) ([]domain.Record, error) {
	email = normalizeEmail(email)
	return m.listRecords(func(r domain.Record) bool { return r.Email == email })
}

func (m *Memory) ListSubscribers(ctx context.Context) ([]domain.Record, error) {
	return m.listRecords(func(r domain.Record) bool {
		return r.EmailVerified && r.Email != "" && len(r.Preferences) > 0
	})
}

func (m *Memory) listRecords(match func(domain.Record) bool) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return nil, m.FailRecords
	}
	var out []domain.Record
	for _, r := range m.records {
		if match(r) {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *Memory) SetRecord(ctx context.Context, uid string, f Fields, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return m.FailRecords
	}
	m.Writes++
	r := domain.Record{UID: uid}
	if merge {
		if old, ok := m.records[uid]; ok {
			r = old
		}
	}
	applyFields(&r, f)
	m.records[uid] = r
	return nil
}

func (m *Memory) UpdateRecord(ctx context.Context, uid string, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return m.FailRecords
	}
	r, ok := m.records[uid]
	if !ok {
		return ErrNotFound
	}
	m.Writes++
	applyFields(&r, f)
	m.records[uid] = r
	return nil
}

func (m *Memory) DeleteRecord(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return m.FailRecords
	}
	m.Writes++
	delete(m.records, uid)
	return nil
}

func (m *Memory) SavePreferences(ctx context.Context, uid string, p domain.PreferenceSet) error {
	return m.SetRecord(ctx, uid, Fields{
		"preferences":         nonNil(p.Preferences),
		"jobTypes":            nonNil(p.JobTypes),
		"experienceLevels":    nonNil(p.ExperienceLevels),
		"locationPreferences": nonNil(p.LocationPreferences),
		"updatedAt":           ServerTimestamp,
	}, true)
}

func (m *Memory) EnsureRecord(ctx context.Context, uid string, p domain.Profile, initial []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecords != nil {
		return m.FailRecords
	}
	m.Writes++
	now := time.Now().UTC()
	r, ok := m.records[uid]
	if !ok {
		r = domain.Record{
			UID:                 uid,
			Preferences:         append([]string{}, initial...),
			JobTypes:            []string{},
			ExperienceLevels:    []string{},
			LocationPreferences: []string{},
			CreatedAt:           &now,
		}
	}
	r.Email = normalizeEmail(p.Email)
	r.Name = p.Name
	if r.Name == "" {
		r.Name = "User"
	}
	r.EmailVerified = p.Verified
	r.LastSignIn = &now
	m.records[uid] = r
	return nil
}

func applyFields(r *domain.Record, f Fields) {
	now := time.Now().UTC()
	for k, v := range f {
		if _, ok := v.(serverTimestamp); ok {
			switch k {
			case "updatedAt":
				r.UpdatedAt = &now
			case "createdAt":
				r.CreatedAt = &now
			case "lastSignIn":
				r.LastSignIn = &now
			}
			continue
		}
		switch k {
		case "preferences":
			r.Preferences = append([]string{}, v.([]string)...)
		case "jobTypes":
			r.JobTypes = append([]string{}, v.([]string)...)
		case "experienceLevels":
			r.ExperienceLevels = append([]string{}, v.([]string)...)
		case "locationPreferences":
			r.LocationPreferences = append([]string{}, v.([]string)...)
		case "email":
			r.Email, _ = v.(string)
		case "name":
			r.Name, _ = v.(string)
		case "emailVerified":
			r.EmailVerified, _ = v.(bool)
		}
	}
}

func copyRecord(r domain.Record) domain.Record {
	r.Preferences = append([]string(nil), r.Preferences...)
	r.JobTypes = append([]string(nil), r.JobTypes...)
	r.ExperienceLevels = append([]string(nil), r.ExperienceLevels...)
	r.LocationPreferences = append([]string(nil), r.LocationPreferences...)
	return r
}

func (m *Memory) InsertJob(ctx context.Context, j *domain.Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.JobID]; ok {
		return false, nil
	}
	if j.AddedToDB.IsZero() {
		j.AddedToDB = time.Now().UTC()
	}
	cp := *j
	cp.Countries = append([]string(nil), j.Countries...)
	m.jobs[j.JobID] = cp
	return true, nil
}

func (m *Memory) FindJob(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return &j, nil
}
