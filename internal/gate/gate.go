// Package gate decides which of the three page views is visible for a session.
//
// The gate is not safe for concurrent use; the page controller serialises calls.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/tazhibayda/dailyjobs/internal/identity"
)

type View int

const (
	SignedOut View = iota
	SignedInUnverified
	SignedInVerified
)

func (v View) String() string {
	switch v {
	case SignedInUnverified:
		return "signed_in_unverified"
	case SignedInVerified:
		return "signed_in_verified"
	default:
		return "signed_out"
	}
}

func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Reloader force-fetches the identity; identity.Provider implements it.
type Reloader interface {
	Reload(ctx context.Context, s *identity.Session) (*identity.Session, error)
}

type Gate struct {
	R Reloader
	// OnVerified runs after every transition into SignedInVerified, typically the editor load.
	OnVerified func(ctx context.Context, s *identity.Session) error

	view    View
	session *identity.Session
}

func New(r Reloader, onVerified func(context.Context, *identity.Session) error) *Gate {
	return &Gate{R: r, OnVerified: onVerified}
}

func (g *Gate) View() View                  { return g.view }
func (g *Gate) Session() *identity.Session { return g.session }

// Observe is the only transition. The verified flag is always re-read; a cached
// session value is never trusted. A failed reload fails closed to SignedInUnverified,
// except an expired or deleted identity, which signs out.
func (g *Gate) Observe(ctx context.Context, s *identity.Session) (View, error) {
	if s == nil {
		g.view, g.session = SignedOut, nil
		return g.view, nil
	}
	fresh, err := g.R.Reload(ctx, s)
	if err != nil {
		if errors.Is(err, identity.ErrTokenExpired) || errors.Is(err, identity.ErrUserNotFound) {
			g.view, g.session = SignedOut, nil
			return g.view, fmt.Errorf("reload session: %w", err)
		}
		g.view, g.session = SignedInUnverified, s
		return g.view, fmt.Errorf("reload session: %w", err)
	}
	g.session = fresh
	if !fresh.Verified {
		g.view = SignedInUnverified
		return g.view, nil
	}
	g.view = SignedInVerified
	if g.OnVerified != nil {
		if err := g.OnVerified(ctx, fresh); err != nil {
			return g.view, fmt.Errorf("load preferences: %w", err)
		}
	}
	return g.view, nil
}
