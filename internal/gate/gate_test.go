package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/tazhibayda/dailyjobs/internal/identity"
)

type fakeReloader struct {
	verified bool
	err      error
	calls    int
}

func (f *fakeReloader) Reload(ctx context.Context, s *identity.Session) (*identity.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *s
	cp.Verified = f.verified
	return &cp, nil
}

func TestUnverifiedNeverShowsEditor(t *testing.T) {
	r := &fakeReloader{}
	loads := 0
	g := New(r, func(context.Context, *identity.Session) error { loads++; return nil })

	// A stale cached flag claiming verified must not matter.
	s := &identity.Session{UID: "u1", Verified: true}
	for i := 0; i < 50; i++ {
		v, err := g.Observe(context.Background(), s)
		if err != nil {
			t.Fatal(err)
		}
		if v == SignedInVerified {
			t.Fatalf("editor visible on iteration %d", i)
		}
	}
	if loads != 0 {
		t.Fatalf("editor loaded %d times", loads)
	}
	if r.calls != 50 {
		t.Fatalf("reload calls=%d, want one per observation", r.calls)
	}
}

func TestTransitions(t *testing.T) {
	r := &fakeReloader{}
	loads := 0
	g := New(r, func(context.Context, *identity.Session) error { loads++; return nil })
	ctx := context.Background()
	s := &identity.Session{UID: "u1"}

	cases := []struct {
		name     string
		session  *identity.Session
		verified bool
		err      error
		want     View
	}{
		{"nil session", nil, false, nil, SignedOut},
		{"unverified", s, false, nil, SignedInUnverified},
		{"verified", s, true, nil, SignedInVerified},
		{"reload fails closed", s, true, errors.New("network"), SignedInUnverified},
		{"expired token", s, true, identity.ErrTokenExpired, SignedOut},
		{"verified again", s, true, nil, SignedInVerified},
	}
	for _, c := range cases {
		r.verified, r.err = c.verified, c.err
		got, _ := g.Observe(ctx, c.session)
		if got != c.want || g.View() != c.want {
			t.Errorf("%s: view=%v want %v", c.name, got, c.want)
		}
	}
	if loads != 2 {
		t.Fatalf("loads=%d, want 2", loads)
	}
}

func TestLoadErrorKeepsVerifiedView(t *testing.T) {
	r := &fakeReloader{verified: true}
	g := New(r, func(context.Context, *identity.Session) error { return errors.New("store down") })
	v, err := g.Observe(context.Background(), &identity.Session{UID: "u1"})
	if v != SignedInVerified || err == nil {
		t.Fatalf("view=%v err=%v", v, err)
	}
}
