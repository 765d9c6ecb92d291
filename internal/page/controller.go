// Package page is the server-side controller behind one open DailyJobs page:
// the session gate, the preference editor, the resend limiter and the notices.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/gate"
	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/notice"
	"github.com/tazhibayda/dailyjobs/internal/prefs"
	"github.com/tazhibayda/dailyjobs/internal/repo"
	"github.com/tazhibayda/dailyjobs/internal/verify"
)

// Records is the record storage a page writes through.
type Records interface {
	prefs.Store
	EnsureRecord(ctx context.Context, uid string, p domain.Profile, initial []string) error
	DeleteRecord(ctx context.Context, uid string) error
}

// Deps are shared by every controller a Registry creates.
type Deps struct {
	Provider identity.Provider
	Records  Records
	Catalog  *catalog.Catalog

	// ContinueURL is where the verification link returns the user.
	ContinueURL string

	Cooldown    time.Duration
	MaxAttempts int
	ResetWindow time.Duration

	SavedFor    time.Duration
	FilterDelay time.Duration
	NoticeTTL   time.Duration

	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Controller holds the state of one page load. Every event method takes mu, so
// events, timers and provider notifications run one at a time.
type Controller struct {
	ID string

	deps Deps

	mu        sync.Mutex
	session   *identity.Session
	gate      *gate.Gate
	editor    *prefs.Editor
	limiter   *verify.Limiter
	countdown *verify.Countdown
	retryIn   string
	notices   *notice.Board
	filter    *prefs.Debouncer
	stopObs   func()
	lastSeen  time.Time
	closed    bool
}

func NewController(id string, deps Deps) *Controller {
	c := &Controller{
		ID:        id,
		deps:      deps,
		editor:    prefs.NewEditor(deps.Records, deps.Catalog, deps.SavedFor),
		limiter:   verify.NewLimiter(deps.Cooldown, deps.MaxAttempts, deps.ResetWindow),
		countdown: &verify.Countdown{Interval: time.Second, Now: deps.now},
		notices:   notice.NewBoard(deps.NoticeTTL),
		filter:    prefs.NewDebouncer(deps.FilterDelay),
		lastSeen:  deps.now(),
	}
	c.gate = gate.New(deps.Provider, c.onVerified)
	return c
}

// onVerified mirrors the verified profile into the record, then loads the editor.
func (c *Controller) onVerified(ctx context.Context, s *identity.Session) error {
	if err := c.deps.Records.EnsureRecord(ctx, s.UID, c.profile(s), nil); err != nil {
		return fmt.Errorf("refresh record: %w", err)
	}
	return c.editor.Load(ctx, s.UID)
}

func (c *Controller) logger(ctx context.Context) *zap.Logger {
	fields := []zap.Field{zap.String("page", c.ID)}
	if c.session != nil {
		fields = append(fields, zap.String("uid", c.session.UID))
	}
	return log.WithDD(ctx, nil, fields...)
}

func (c *Controller) lock() {
	c.mu.Lock()
	c.lastSeen = c.deps.now()
}

func (c *Controller) fail(scope notice.Scope, err error) error {
	c.notices.Post(scope, notice.Error, Message(err))
	return err
}

// failVerification posts a verification failure; these stay until superseded.
func (c *Controller) failVerification(err error) error {
	c.notices.PostSticky(notice.Auth, notice.Error, verificationMessage(err))
	return err
}

func (c *Controller) profile(s *identity.Session) domain.Profile {
	return domain.Profile{Email: s.Email, Name: s.DisplayName, Verified: s.Verified}
}

// SignUp validates the form locally, creates the identity, stores the initial
// preferences and sends the first verification email.
func (c *Controller) SignUp(ctx context.Context, form prefs.SignUpForm) error {
	c.lock()
	defer c.mu.Unlock()

	initial, err := form.Validate(c.deps.Catalog)
	if err != nil {
		return c.fail(notice.Auth, err)
	}
	s, err := c.deps.Provider.SignUp(ctx, form.Name, form.Email, form.Password)
	if err != nil {
		return c.fail(notice.Auth, err)
	}
	uid := s.UID
	if err := c.deps.Records.EnsureRecord(ctx, uid, c.profile(s), initial.Preferences); err != nil {
		c.logger(ctx).Error("ensure record", zap.Error(err))
		c.notices.Post(notice.Auth, notice.Error, msgStore)
	} else if err := c.deps.Records.SavePreferences(ctx, uid, initial); err != nil {
		c.logger(ctx).Error("store initial preferences", zap.Error(err))
		c.notices.Post(notice.Auth, notice.Error, msgStore)
	}
	c.setSession(ctx, s)

	// The account exists either way; a failed first send only leaves its notice.
	_ = c.sendVerification(ctx)
	return nil
}

func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	c.lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(email) == "" || password == "" {
		return c.fail(notice.Auth, fmt.Errorf("%w: Please enter your email and password.", prefs.ErrValidation))
	}
	s, err := c.deps.Provider.SignIn(ctx, email, password)
	if err != nil {
		return c.fail(notice.Auth, err)
	}
	c.afterSignIn(ctx, s)
	return nil
}

// FederatedURL is the Google consent URL; its state names this page.
func (c *Controller) FederatedURL() (string, error) {
	c.lock()
	defer c.mu.Unlock()
	u, err := c.deps.Provider.FederatedURL(c.ID)
	if err != nil {
		return "", c.fail(notice.Auth, err)
	}
	return u, nil
}

// CompleteFederated finishes the Google callback. An empty code means the user cancelled.
func (c *Controller) CompleteFederated(ctx context.Context, state, code string) error {
	c.lock()
	defer c.mu.Unlock()

	raw, err := c.deps.Provider.ParseFederatedState(state)
	if err != nil || raw != c.ID || code == "" {
		return c.fail(notice.Auth, identity.ErrPopupClosed)
	}
	s, err := c.deps.Provider.SignInFederated(ctx, code)
	if err != nil {
		return c.fail(notice.Auth, err)
	}
	c.afterSignIn(ctx, s)
	return nil
}

func (c *Controller) afterSignIn(ctx context.Context, s *identity.Session) {
	if err := c.deps.Records.EnsureRecord(ctx, s.UID, c.profile(s), nil); err != nil {
		c.logger(ctx).Error("ensure record", zap.Error(err))
	}
	c.setSession(ctx, s)
}

func (c *Controller) SignOut(ctx context.Context) error {
	c.lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	if err := c.deps.Provider.SignOut(ctx, c.session); err != nil {
		return c.fail(notice.Auth, err)
	}
	c.clearSession(ctx)
	c.notices.Post(notice.Auth, notice.Info, msgSignedOut)
	return nil
}

// ResendVerification is locally limited; rejected requests never reach the provider.
func (c *Controller) ResendVerification(ctx context.Context) error {
	c.lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return c.fail(notice.Auth, ErrNotSignedIn)
	}
	if c.gate.View() == gate.SignedInVerified {
		c.notices.Post(notice.Auth, notice.Info, msgAlreadyVerified)
		return nil
	}
	now := c.deps.now()
	if err := c.limiter.Check(now); err != nil {
		var me *verify.MaxRetriesError
		if errors.As(err, &me) {
			metrics.VerificationSends.WithLabelValues("max_retries").Inc()
			c.startRetryCountdown(now.Add(me.ResetIn))
		} else {
			metrics.VerificationSends.WithLabelValues("cooldown").Inc()
		}
		return c.failVerification(err)
	}
	return c.sendVerification(ctx)
}

// sendVerification is the provider call behind every counted send.
func (c *Controller) sendVerification(ctx context.Context) error {
	err := c.deps.Provider.SendVerification(ctx, c.session, identity.ActionCodeSettings{
		URL:             c.deps.ContinueURL,
		HandleCodeInApp: true,
	})
	if err != nil {
		c.logger(ctx).Warn("send verification", zap.String("code", string(identity.CodeOf(err))))
		return c.failVerification(err)
	}
	c.limiter.Record(c.deps.now())
	c.notices.PostSticky(notice.Auth, notice.Success, msgVerificationSent)
	return nil
}

func (c *Controller) startRetryCountdown(until time.Time) {
	c.retryIn = verify.Clock(until.Sub(c.deps.now()))
	c.countdown.Start(until, func(rem time.Duration) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		if rem == 0 {
			c.retryIn = ""
			return
		}
		c.retryIn = verify.Clock(rem)
	})
}

// CheckVerified re-runs the gate, for the "I've verified" button.
func (c *Controller) CheckVerified(ctx context.Context) error {
	c.lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return c.fail(notice.Auth, ErrNotSignedIn)
	}
	if err := c.observe(ctx, c.session); err != nil {
		return err
	}
	if c.gate.View() != gate.SignedInVerified {
		c.notices.PostSticky(notice.Auth, notice.Info, msgNotVerifiedYet)
	}
	return nil
}

func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	c.lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(email) == "" {
		return c.fail(notice.Auth, fmt.Errorf("%w: Please enter your email address.", prefs.ErrValidation))
	}
	if err := c.deps.Provider.SendPasswordReset(ctx, email); err != nil {
		return c.fail(notice.Auth, err)
	}
	c.notices.Post(notice.Auth, notice.Success, msgResetSent)
	return nil
}

// DeleteAccount reauthenticates, deletes the record, then the identity.
func (c *Controller) DeleteAccount(ctx context.Context, password string) error {
	c.lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return c.fail(notice.Auth, ErrNotSignedIn)
	}
	if password == "" {
		return c.fail(notice.Auth, fmt.Errorf("%w: Please enter your password to confirm.", prefs.ErrValidation))
	}
	fresh, err := c.deps.Provider.Reauthenticate(ctx, c.session, password)
	if err != nil {
		return c.fail(notice.Auth, err)
	}
	c.session = fresh
	if err := c.deps.Records.DeleteRecord(ctx, fresh.UID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return c.fail(notice.Auth, &StoreError{Op: "delete record", Err: err})
	}
	if err := c.deps.Provider.Delete(ctx, fresh); err != nil {
		return c.fail(notice.Auth, err)
	}
	c.logger(ctx).Info("account deleted")
	c.clearSession(ctx)
	c.notices.Post(notice.Auth, notice.Info, msgDeleted)
	return nil
}

func (c *Controller) editable() error {
	if c.gate.View() != gate.SignedInVerified {
		return ErrEditorHidden
	}
	return nil
}

func (c *Controller) Toggle(id string) error {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if !c.editor.Companies.Toggle(id) {
		return fmt.Errorf("%w: Unknown company.", prefs.ErrValidation)
	}
	return nil
}

// Filter is debounced; the newest term wins even if older timers fire late.
func (c *Controller) Filter(term string) (uint64, error) {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return 0, err
	}
	return c.filter.Submit(func(seq uint64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || !c.filter.Current(seq) {
			return
		}
		c.editor.Companies.Filter(term)
	}), nil
}

func (c *Controller) SelectAll() error {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.editor.Companies.SelectAll()
	return nil
}

func (c *Controller) ClearAll() error {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.editor.Companies.ClearAll()
	return nil
}

func (c *Controller) CheckJobType(id string, checked bool) error {
	return c.check(func() bool { return c.editor.JobTypes.Check(id, checked) })
}

func (c *Controller) CheckExperience(id string, checked bool) error {
	return c.check(func() bool { return c.editor.Experience.Check(id, checked) })
}

func (c *Controller) CheckLocation(id string, checked bool) error {
	return c.check(func() bool { return c.editor.Locations.Check(id, checked) })
}

func (c *Controller) check(apply func() bool) error {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if !apply() {
		return fmt.Errorf("%w: Unknown option.", prefs.ErrValidation)
	}
	return nil
}

func (c *Controller) Save(ctx context.Context) error {
	c.lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return c.fail(notice.Preferences, err)
	}
	if err := c.editor.Save(ctx, c.session.UID); err != nil {
		c.logger(ctx).Error("save preferences", zap.Error(err))
		c.notices.Post(notice.Preferences, notice.Error, msgSaveFailed)
		return &StoreError{Op: "save preferences", Err: err}
	}
	c.notices.Post(notice.Preferences, notice.Success, msgSaved)
	return nil
}

// setSession adopts s, follows its provider notifications and runs the gate.
func (c *Controller) setSession(ctx context.Context, s *identity.Session) {
	if c.stopObs != nil {
		c.stopObs()
	}
	c.session = s
	c.stopObs = c.deps.Provider.Observe(s.UID, c.onProviderChange)
	_ = c.observe(ctx, s)
}

func (c *Controller) clearSession(ctx context.Context) {
	if c.stopObs != nil {
		c.stopObs()
		c.stopObs = nil
	}
	c.session = nil
	c.countdown.Stop()
	c.retryIn = ""
	c.editor.Apply(domain.PreferenceSet{})
	_, _ = c.gate.Observe(ctx, nil)
}

// observe runs the gate and reports load or reload failures as notices.
func (c *Controller) observe(ctx context.Context, s *identity.Session) error {
	view, err := c.gate.Observe(ctx, s)
	switch {
	case view == gate.SignedOut:
		c.session = nil
		if c.stopObs != nil {
			c.stopObs()
			c.stopObs = nil
		}
		if err != nil {
			return c.fail(notice.Auth, err)
		}
	case err != nil && view == gate.SignedInVerified:
		c.logger(ctx).Error("load preferences", zap.Error(err))
		c.notices.Post(notice.Preferences, notice.Error, msgLoadFailed)
		return &StoreError{Op: "load preferences", Err: err}
	case err != nil:
		c.logger(ctx).Warn("reload session", zap.Error(err))
		c.notices.PostSticky(notice.Auth, notice.Error, msgCheckFailed)
		return err
	case view == gate.SignedInUnverified:
		c.notices.PostSticky(notice.Auth, notice.Info, msgVerifyFirst)
	}
	if fresh := c.gate.Session(); fresh != nil && view != gate.SignedOut {
		c.session = fresh
	}
	return nil
}

// onProviderChange runs on the provider's goroutine.
func (c *Controller) onProviderChange(s *identity.Session) {
	c.lock()
	defer c.mu.Unlock()
	if c.closed || c.session == nil {
		return
	}
	ctx := context.Background()
	if s == nil {
		c.clearSession(ctx)
		return
	}
	_ = c.observe(ctx, c.session)
}

type SessionView struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Verified    bool   `json:"emailVerified"`
	Provider    string `json:"provider"`
}

type VerificationView struct {
	Attempts        int    `json:"attempts"`
	CooldownSeconds int    `json:"cooldownSeconds"`
	RetryIn         string `json:"retryIn,omitempty"`
}

type Snapshot struct {
	ID           string                         `json:"id"`
	View         gate.View                      `json:"view"`
	Session      *SessionView                   `json:"session,omitempty"`
	Verification *VerificationView              `json:"verification,omitempty"`
	Editor       *prefs.View                    `json:"editor,omitempty"`
	Notices      map[notice.Scope]notice.Notice `json:"notices"`
}

// Snapshot renders the page. The editor is included only in SignedInVerified.
func (c *Controller) Snapshot() Snapshot {
	c.lock()
	defer c.mu.Unlock()
	out := Snapshot{ID: c.ID, View: c.gate.View(), Notices: c.notices.Snapshot()}
	if s := c.session; s != nil {
		out.Session = &SessionView{Email: s.Email, DisplayName: s.DisplayName, Verified: s.Verified, Provider: s.Provider}
	}
	switch out.View {
	case gate.SignedInUnverified:
		rem := c.limiter.CooldownRemaining(c.deps.now())
		out.Verification = &VerificationView{
			Attempts:        c.limiter.Attempts(),
			CooldownSeconds: int((rem + time.Second - 1) / time.Second),
			RetryIn:         c.retryIn,
		}
	case gate.SignedInVerified:
		v := c.editor.View()
		out.Editor = &v
	}
	return out
}

func (c *Controller) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// Close stops every timer and provider subscription of the page.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.stopObs != nil {
		c.stopObs()
		c.stopObs = nil
	}
	c.countdown.Stop()
	c.filter.Stop()
	c.notices.Close()
	c.editor.Close()
}
