// Package identity is the identity provider the page talks to: accounts, sessions,
// email verification, password reset, federated sign-in and state-change notifications.
package identity

import (
	"context"
	"time"
)

// Session is the signed-in identity for one page. Read-only to callers.
type Session struct {
	UID         string    `json:"uid"`
	Token       string    `json:"token"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Verified    bool      `json:"emailVerified"`
	Provider    string    `json:"provider"`
	AuthTime    time.Time `json:"authTime"`
}

// ActionCodeSettings controls where the emailed link sends the user back to.
type ActionCodeSettings struct {
	URL             string
	HandleCodeInApp bool
}

// Provider is the surface the page controller consumes.
type Provider interface {
	SignUp(ctx context.Context, name, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// FederatedURL returns the consent URL; raw comes back from ParseFederatedState on the callback.
	FederatedURL(raw string) (string, error)
	ParseFederatedState(state string) (string, error)
	SignInFederated(ctx context.Context, code string) (*Session, error)
	SignOut(ctx context.Context, s *Session) error

	SendVerification(ctx context.Context, s *Session, settings ActionCodeSettings) error
	// ConfirmVerification consumes an emailed token and returns its continue URL.
	ConfirmVerification(ctx context.Context, token string) (string, error)
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	Reauthenticate(ctx context.Context, s *Session, password string) (*Session, error)
	Delete(ctx context.Context, s *Session) error
	// Reload re-reads the identity, refreshing the verified flag.
	Reload(ctx context.Context, s *Session) (*Session, error)

	// Observe calls fn after every state change of uid; nil means signed out or deleted.
	// Callbacks run on their own goroutine.
	Observe(uid string, fn func(*Session)) (cancel func())
}
