package identity

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/helper"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/oauth"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"github.com/tazhibayda/dailyjobs/internal/repo"
	"github.com/tazhibayda/dailyjobs/internal/security"
)

const (
	MinPasswordLen = 6
	// RecentLogin is how old a session's credentials may be for Delete.
	RecentLogin = 5 * time.Minute
	tokenTTL    = time.Hour
)

// Accounts is the identity storage; *repo.Store and *repo.Memory implement it.
type Accounts interface {
	CreateIdentity(ctx context.Context, u *domain.Identity) error
	FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error)
	FindIdentityByExternal(ctx context.Context, provider, externalID string) (*domain.Identity, error)
	SetIdentityVerified(ctx context.Context, id primitive.ObjectID) error
	SetIdentityPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	LinkExternal(ctx context.Context, id primitive.ObjectID, provider, externalID string) error
	DeleteIdentity(ctx context.Context, id primitive.ObjectID) error
	CreateEmailToken(ctx context.Context, et repo.EmailToken) error
	UseEmailToken(ctx context.Context, token, purpose string) (*repo.EmailToken, error)
}

// Federated is the Google code flow; *oauth.GoogleOAuth implements it.
type Federated interface {
	Enabled() bool
	MakeState(raw string) string
	VerifyState(got string) (string, bool)
	AuthURL(state string) string
	ExchangeAndVerify(ctx context.Context, code string) (*oauth.GoogleUser, error)
}

// Local is the self-hosted Provider: bcrypt passwords, RS256 session tokens,
// opaque single-use email tokens and events on the broker for the notifier.
type Local struct {
	Accounts Accounts
	Keys     *security.KeyManager
	Google   Federated
	Pub      queue.Publisher
	Exchange string
	Throttle Throttle

	// PublicURL prefixes emailed links.
	PublicURL string
	// AllowedHosts are the hosts a continue URL may point at. Empty allows any http(s) host.
	AllowedHosts []string
	SessionTTL   time.Duration
	Now          func() time.Time

	obs observers
}

func NewLocal(accounts Accounts, keys *security.KeyManager, pub queue.Publisher, exchange string) *Local {
	return &Local{
		Accounts:   accounts,
		Keys:       keys,
		Pub:        pub,
		Exchange:   exchange,
		Throttle:   unlimited{},
		SessionTTL: time.Hour,
		Now:        time.Now,
	}
}

var _ Provider = (*Local)(nil)

func (l *Local) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s, "@")
}

func (l *Local) SignUp(ctx context.Context, name, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, internal(err)
	}
	u := &domain.Identity{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Provider:     domain.ProviderPassword,
	}
	if err := l.Accounts.CreateIdentity(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailExists) {
			return nil, ErrEmailInUse
		}
		return nil, internal(err)
	}
	l.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name})
	log.WithDD(ctx, nil, zap.String("uid", u.ID.Hex()), zap.String("email_hash", helper.Hash8(email))).Info("identity created")
	return l.session(u, l.now())
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := l.Accounts.FindIdentityByEmail(ctx, email)
	if err != nil {
		return nil, internal(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if u.PasswordHash == "" || !security.CheckPassword(u.PasswordHash, password) {
		return nil, ErrWrongPassword
	}
	return l.session(u, l.now())
}

func (l *Local) FederatedURL(raw string) (string, error) {
	if l.Google == nil || !l.Google.Enabled() {
		return "", ErrOperationNotAllowed
	}
	return l.Google.AuthURL(l.Google.MakeState(raw)), nil
}

func (l *Local) ParseFederatedState(state string) (string, error) {
	if l.Google == nil {
		return "", ErrOperationNotAllowed
	}
	raw, ok := l.Google.VerifyState(state)
	if !ok {
		return "", ErrInvalidActionCode
	}
	return raw, nil
}

// SignInFederated links by Google subject first, then by verified email, and creates the identity otherwise.
func (l *Local) SignInFederated(ctx context.Context, code string) (*Session, error) {
	if l.Google == nil || !l.Google.Enabled() {
		return nil, ErrOperationNotAllowed
	}
	gu, err := l.Google.ExchangeAndVerify(ctx, code)
	if err != nil {
		return nil, internal(err)
	}
	u, err := l.Accounts.FindIdentityByExternal(ctx, domain.ProviderGoogle, gu.Sub)
	if err != nil {
		return nil, internal(err)
	}
	if u == nil {
		u, err = l.Accounts.FindIdentityByEmail(ctx, gu.Email)
		if err != nil {
			return nil, internal(err)
		}
		switch {
		case u != nil && gu.EmailVerified:
			if err := l.Accounts.LinkExternal(ctx, u.ID, domain.ProviderGoogle, gu.Sub); err != nil {
				return nil, internal(err)
			}
			u.ExternalID, u.Verified = gu.Sub, true
		case u != nil:
			return nil, ErrEmailInUse
		default:
			u = &domain.Identity{
				Email:      gu.Email,
				Name:       gu.Name,
				Provider:   domain.ProviderGoogle,
				ExternalID: gu.Sub,
				Verified:   gu.EmailVerified,
			}
			if err := l.Accounts.CreateIdentity(ctx, u); err != nil {
				return nil, internal(err)
			}
			l.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name})
		}
	}
	return l.session(u, l.now())
}

// SignOut is local to the caller's session; other pages of the same identity stay signed in.
func (l *Local) SignOut(ctx context.Context, s *Session) error {
	if s != nil {
		log.WithDD(ctx, nil, zap.String("uid", s.UID)).Info("signed out")
	}
	return nil
}

func (l *Local) SendVerification(ctx context.Context, s *Session, settings ActionCodeSettings) error {
	if err := l.checkContinueURL(settings.URL); err != nil {
		metrics.VerificationSends.WithLabelValues("failed").Inc()
		return err
	}
	u, err := l.identityOf(ctx, s)
	if err != nil {
		return err
	}
	if err := l.allow(ctx, "verify:"+u.ID.Hex()); err != nil {
		metrics.VerificationSends.WithLabelValues("throttled").Inc()
		return err
	}
	tok, err := l.newToken(ctx, u.ID, repo.PurposeVerify, settings.URL)
	if err != nil {
		return err
	}
	l.publish(ctx, queue.KeyVerificationRequested, queue.VerificationRequested{
		UserID:          u.ID.Hex(),
		Email:           u.Email,
		Name:            u.Name,
		Link:            strings.TrimRight(l.PublicURL, "/") + "/api/auth/verify?token=" + url.QueryEscape(tok),
		ContinueURL:     settings.URL,
		HandleCodeInApp: settings.HandleCodeInApp,
	})
	metrics.VerificationSends.WithLabelValues("sent").Inc()
	return nil
}

func (l *Local) ConfirmVerification(ctx context.Context, token string) (string, error) {
	et, err := l.Accounts.UseEmailToken(ctx, token, repo.PurposeVerify)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrInvalidActionCode
	}
	if err != nil {
		return "", internal(err)
	}
	if err := l.Accounts.SetIdentityVerified(ctx, et.UserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", internal(err)
	}
	uid := et.UserID.Hex()
	log.WithDD(ctx, nil, zap.String("uid", uid)).Info("email verified")
	l.obs.notify(uid, &Session{UID: uid, Verified: true})
	return et.ContinueURL, nil
}

func (l *Local) SendPasswordReset(ctx context.Context, email string) error {
	u, err := l.Accounts.FindIdentityByEmail(ctx, email)
	if err != nil {
		return internal(err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := l.allow(ctx, "reset:"+u.ID.Hex()); err != nil {
		return err
	}
	tok, err := l.newToken(ctx, u.ID, repo.PurposeReset, "")
	if err != nil {
		return err
	}
	l.publish(ctx, queue.KeyPasswordReset, queue.PasswordResetRequested{
		UserID: u.ID.Hex(),
		Email:  u.Email,
		Link:   strings.TrimRight(l.PublicURL, "/") + "/api/auth/reset?token=" + url.QueryEscape(tok),
	})
	return nil
}

func (l *Local) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	et, err := l.Accounts.UseEmailToken(ctx, token, repo.PurposeReset)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidActionCode
	}
	if err != nil {
		return internal(err)
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return internal(err)
	}
	if err := l.Accounts.SetIdentityPassword(ctx, et.UserID, hash); err != nil {
		return internal(err)
	}
	return nil
}

func (l *Local) Reauthenticate(ctx context.Context, s *Session, password string) (*Session, error) {
	u, err := l.identityOf(ctx, s)
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrOperationNotAllowed
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return nil, ErrWrongPassword
	}
	return l.session(u, l.now())
}

// Delete removes the identity. The caller must have presented credentials within RecentLogin.
func (l *Local) Delete(ctx context.Context, s *Session) error {
	c, err := l.claims(s)
	if err != nil {
		return err
	}
	if l.now().Sub(time.Unix(c.AuthTime, 0)) > RecentLogin {
		return ErrRequiresRecentLogin
	}
	oid, err := primitive.ObjectIDFromHex(c.UID)
	if err != nil {
		return ErrUserNotFound
	}
	if err := l.Accounts.DeleteIdentity(ctx, oid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return internal(err)
	}
	l.publish(ctx, queue.KeyAccountDeleted, queue.AccountDeleted{UserID: c.UID})
	log.WithDD(ctx, nil, zap.String("uid", c.UID)).Info("identity deleted")
	l.obs.notify(c.UID, nil)
	return nil
}

func (l *Local) Reload(ctx context.Context, s *Session) (*Session, error) {
	c, err := l.claims(s)
	if err != nil {
		return nil, err
	}
	u, err := l.Accounts.FindIdentityByID(ctx, c.UID)
	if err != nil {
		return nil, internal(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return &Session{
		UID:         c.UID,
		Token:       s.Token,
		Email:       u.Email,
		DisplayName: u.Name,
		Verified:    u.Verified,
		Provider:    u.Provider,
		AuthTime:    time.Unix(c.AuthTime, 0),
	}, nil
}

func (l *Local) Observe(uid string, fn func(*Session)) func() {
	return l.obs.add(uid, fn)
}

func (l *Local) session(u *domain.Identity, authTime time.Time) (*Session, error) {
	tok, err := security.MakeSessionToken(l.Keys, u.ID.Hex(), u.Email, u.Provider, authTime, l.SessionTTL)
	if err != nil {
		return nil, internal(err)
	}
	return &Session{
		UID:         u.ID.Hex(),
		Token:       tok,
		Email:       u.Email,
		DisplayName: u.Name,
		Verified:    u.Verified,
		Provider:    u.Provider,
		AuthTime:    time.Unix(authTime.Unix(), 0),
	}, nil
}

func (l *Local) claims(s *Session) (*security.Claims, error) {
	if s == nil || s.Token == "" {
		return nil, ErrTokenExpired
	}
	c, err := security.ParseSessionToken(l.Keys, s.Token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, &Error{Code: CodeTokenExpired, Err: err}
	}
	return c, nil
}

func (l *Local) identityOf(ctx context.Context, s *Session) (*domain.Identity, error) {
	c, err := l.claims(s)
	if err != nil {
		return nil, err
	}
	u, err := l.Accounts.FindIdentityByID(ctx, c.UID)
	if err != nil {
		return nil, internal(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (l *Local) checkContinueURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ErrInvalidContinueURI
	}
	if len(l.AllowedHosts) == 0 {
		return nil
	}
	for _, h := range l.AllowedHosts {
		if strings.EqualFold(h, u.Hostname()) {
			return nil
		}
	}
	return ErrInvalidContinueURI
}

func (l *Local) allow(ctx context.Context, key string) error {
	th := l.Throttle
	if th == nil {
		th = unlimited{}
	}
	ok, err := th.Allow(ctx, key)
	if err != nil {
		// A broken throttle store does not block mail.
		log.WithDD(ctx, nil, zap.Error(err)).Warn("throttle unavailable")
		return nil
	}
	if !ok {
		return ErrTooManyRequests
	}
	return nil
}

func (l *Local) newToken(ctx context.Context, uid primitive.ObjectID, purpose, continueURL string) (string, error) {
	tok, err := security.NewOpaqueToken()
	if err != nil {
		return "", internal(err)
	}
	err = l.Accounts.CreateEmailToken(ctx, repo.EmailToken{
		UserID:      uid,
		Token:       tok,
		Purpose:     purpose,
		ExpiresAt:   l.now().Add(tokenTTL).UTC(),
		ContinueURL: continueURL,
	})
	if err != nil {
		return "", internal(err)
	}
	return tok, nil
}

func (l *Local) publish(ctx context.Context, key string, event any) {
	if l.Pub == nil {
		return
	}
	if err := l.Pub.Publish(ctx, l.Exchange, key, event, ""); err != nil {
		log.WithDD(ctx, nil, zap.String("key", key), zap.Error(err)).Warn("publish failed")
	}
}
