package page

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/gate"
	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/notice"
	"github.com/tazhibayda/dailyjobs/internal/picklist"
	"github.com/tazhibayda/dailyjobs/internal/prefs"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"github.com/tazhibayda/dailyjobs/internal/repo"
	"github.com/tazhibayda/dailyjobs/internal/security"
	"github.com/tazhibayda/dailyjobs/internal/verify"
)

type testEnv struct {
	T    *testing.T
	Mem  *repo.Memory
	Pub  *queue.Recorder
	IDP  *identity.Local
	Deps Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	security.Cost = 4
	km, err := security.NewEphemeralKeyManager("test")
	if err != nil {
		t.Fatal(err)
	}
	mem := repo.NewMemory()
	pub := &queue.Recorder{}
	idp := identity.NewLocal(mem, km, pub, "test.events")
	idp.PublicURL = "http://localhost:8080"
	return &testEnv{
		T: t, Mem: mem, Pub: pub, IDP: idp,
		Deps: Deps{
			Provider: idp,
			Records:  mem,
			Catalog: &catalog.Catalog{
				Companies:        []catalog.Entry{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}},
				Locations:        []catalog.Entry{{ID: "any", Name: "Any"}, {ID: "remote", Name: "Remote"}},
				JobTypes:         []catalog.Entry{{ID: "product", Name: "Product"}},
				ExperienceLevels: []catalog.Entry{{ID: "entry", Name: "Entry"}},
			},
			ContinueURL: "https://advaitlad.github.io/DailyJobs/",
			FilterDelay: 10 * time.Millisecond,
			SavedFor:    2 * time.Second,
		},
	}
}

func form(companies ...string) prefs.SignUpForm {
	return prefs.SignUpForm{
		Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1",
		Companies: companies,
	}
}

// verifyLatest follows the most recent emailed verification link.
func (e *testEnv) verifyLatest() {
	e.T.Helper()
	evs := e.Pub.Events(queue.KeyVerificationRequested)
	if len(evs) == 0 {
		e.T.Fatal("no verification mail")
	}
	u, err := url.Parse(evs[len(evs)-1].Event.(queue.VerificationRequested).Link)
	if err != nil {
		e.T.Fatal(err)
	}
	if _, err := e.IDP.ConfirmVerification(context.Background(), u.Query().Get("token")); err != nil {
		e.T.Fatal(err)
	}
}

func waitView(t *testing.T, c *Controller, want gate.View) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := c.Snapshot()
		if s.View == want {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("view=%v, want %v", s.View, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestZeroCompanySignUpNeverWrites(t *testing.T) {
	e := newTestEnv(t)
	c := NewController("p1", e.Deps)
	defer c.Close()

	err := c.SignUp(context.Background(), form())
	if !errors.Is(err, prefs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if e.Mem.Writes != 0 {
		t.Fatalf("store writes=%d", e.Mem.Writes)
	}
	if n := len(e.Pub.Events("")); n != 0 {
		t.Fatalf("provider was reached: %d events", n)
	}
	snap := c.Snapshot()
	if snap.View != gate.SignedOut {
		t.Fatalf("view=%v", snap.View)
	}
	if n := snap.Notices[notice.Auth]; n.Text != "Please select at least one company." {
		t.Fatalf("notice=%+v", n)
	}
}

func TestSignUpVerifyEditSave(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("b")); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.View != gate.SignedInUnverified || snap.Editor != nil {
		t.Fatalf("after sign-up: %+v", snap)
	}
	if snap.Verification == nil || snap.Verification.Attempts != 1 {
		t.Fatalf("sign-up send not counted: %+v", snap.Verification)
	}
	if err := c.Toggle("a"); !errors.Is(err, ErrEditorHidden) {
		t.Fatalf("edit while unverified: %v", err)
	}

	e.verifyLatest()
	snap = waitView(t, c, gate.SignedInVerified)
	if got := snap.Editor.Companies.Selected; !reflect.DeepEqual(got, []picklist.Item{{ID: "b", Name: "B"}}) {
		t.Fatalf("selected after load=%v", got)
	}

	if _, err := c.Filter("c"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for {
		snap = c.Snapshot()
		if snap.Editor.Companies.Filter == "c" || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := snap.Editor.Companies.Available; !reflect.DeepEqual(got, []picklist.Item{{ID: "c", Name: "C"}}) {
		t.Fatalf("filtered available=%v", got)
	}

	if err := c.Toggle("c"); err != nil {
		t.Fatal(err)
	}
	if err := c.CheckLocation("remote", true); err != nil {
		t.Fatal(err)
	}
	if err := c.CheckLocation("any", true); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatal(err)
	}
	// A second save inside the confirmation window still goes through.
	if err := c.Toggle("b"); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("second save: %v", err)
	}

	snap = c.Snapshot()
	rec, err := e.Mem.GetRecord(ctx, sessionUID(t, c))
	if err != nil || rec == nil {
		t.Fatalf("record: %v %v", rec, err)
	}
	if !reflect.DeepEqual(rec.Preferences, []string{"c"}) || !reflect.DeepEqual(rec.LocationPreferences, []string{"any"}) {
		t.Fatalf("stored=%+v", rec)
	}
	if rec.Email != "ada@example.com" || rec.Name != "Ada" {
		t.Fatalf("profile mirror=%+v", rec)
	}
	if n := snap.Notices[notice.Preferences]; n.Text != msgSaved {
		t.Fatalf("notice=%+v", n)
	}
}

func sessionUID(t *testing.T, c *Controller) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		t.Fatal("no session")
	}
	return c.session.UID
}

func TestResendCooldownIsLocal(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	before := len(e.Pub.Events(queue.KeyVerificationRequested))
	for i := 0; i < 5; i++ {
		err := c.ResendVerification(ctx)
		var ce *verify.CooldownError
		if !errors.As(err, &ce) {
			t.Fatalf("resend %d: %v", i, err)
		}
	}
	if after := len(e.Pub.Events(queue.KeyVerificationRequested)); after != before {
		t.Fatalf("provider reached during cooldown: %d -> %d", before, after)
	}
}

func TestMaxRetriesStartsCountdown(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e.Deps.Now = func() time.Time { return now }
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		now = now.Add(61 * time.Second)
		if err := c.ResendVerification(ctx); err != nil {
			t.Fatalf("resend %d: %v", i, err)
		}
	}
	now = now.Add(61 * time.Second)
	err := c.ResendVerification(ctx)
	var me *verify.MaxRetriesError
	if !errors.As(err, &me) {
		t.Fatalf("want max retries, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Verification.RetryIn == "" {
		t.Fatal("countdown not shown")
	}
	if n := len(e.Pub.Events(queue.KeyVerificationRequested)); n != 3 {
		t.Fatalf("sends=%d", n)
	}
}

func TestLoadFailureShowsNotice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()
	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	e.Mem.FailRecords = errors.New("store down")
	e.verifyLatest()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := c.Snapshot()
		if n, ok := snap.Notices[notice.Preferences]; ok {
			if n.Text != msgLoadFailed {
				t.Fatalf("notice=%+v", n)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no load failure notice")
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.Mem.FailRecords = nil
	if err := c.Save(ctx); err != nil {
		t.Fatalf("page not usable after failure: %v", err)
	}
}

func TestSignInErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignIn(ctx, "", ""); !errors.Is(err, prefs.ErrValidation) {
		t.Fatalf("empty: %v", err)
	}
	if err := c.SignIn(ctx, "ghost@example.com", "secret1"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("unknown: %v", err)
	}
	if n := c.Snapshot().Notices[notice.Auth]; n.Text != "No account found with this email. Please sign up first." {
		t.Fatalf("notice=%+v", n)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()
	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	uid := sessionUID(t, c)

	if err := c.DeleteAccount(ctx, "wrong"); !errors.Is(err, identity.ErrWrongPassword) {
		t.Fatalf("wrong password: %v", err)
	}
	if rec, _ := e.Mem.GetRecord(ctx, uid); rec == nil {
		t.Fatal("record deleted before reauthentication")
	}
	if err := c.DeleteAccount(ctx, "secret1"); err != nil {
		t.Fatal(err)
	}
	if rec, _ := e.Mem.GetRecord(ctx, uid); rec != nil {
		t.Fatal("record still present")
	}
	if _, err := e.IDP.SignIn(ctx, "ada@example.com", "secret1"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("identity still present: %v", err)
	}
	if v := c.Snapshot().View; v != gate.SignedOut {
		t.Fatalf("view=%v", v)
	}
}

func TestSignOutHidesEditor(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()
	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	e.verifyLatest()
	waitView(t, c, gate.SignedInVerified)
	if err := c.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.View != gate.SignedOut || snap.Editor != nil || snap.Session != nil {
		t.Fatalf("after sign-out: %+v", snap)
	}

	if err := c.SignIn(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	snap = c.Snapshot()
	if snap.View != gate.SignedInVerified {
		t.Fatalf("view=%v", snap.View)
	}
	if got := snap.Editor.Companies.Selected; len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("selected=%v", got)
	}
}

func TestRegistrySweep(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e.Deps.Now = func() time.Time { return now }
	r := NewRegistry(e.Deps, 10*time.Minute)
	defer r.Stop()

	old := r.Create()
	now = now.Add(8 * time.Minute)
	fresh := r.Create()
	now = now.Add(5 * time.Minute)

	if n := r.Sweep(now); n != 1 {
		t.Fatalf("evicted %d", n)
	}
	if _, ok := r.Get(old.ID); ok {
		t.Fatal("idle page kept")
	}
	if _, ok := r.Get(fresh.ID); !ok {
		t.Fatal("active page evicted")
	}
	if err := r.Start("not a cron expression"); err == nil {
		t.Fatal("bad cron spec accepted")
	}
	if err := r.Start("@every 1m"); err != nil {
		t.Fatal(err)
	}
}

type denyThrottle struct{}

func (denyThrottle) Allow(context.Context, string) (bool, error) { return false, nil }

func waitNotice(t *testing.T, c *Controller, scope notice.Scope, text string) notice.Notice {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		n := c.Snapshot().Notices[scope]
		if n.Text == text {
			return n
		}
		if time.Now().After(deadline) {
			t.Fatalf("notice=%+v, want %q", n, text)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestVerificationNoticesOutliveTTL(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e.Deps.Now = func() time.Time { return now }
	e.Deps.NoticeTTL = 20 * time.Millisecond
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		now = now.Add(61 * time.Second)
		if err := c.ResendVerification(ctx); err != nil {
			t.Fatalf("resend %d: %v", i, err)
		}
	}
	now = now.Add(61 * time.Second)
	var me *verify.MaxRetriesError
	if err := c.ResendVerification(ctx); !errors.As(err, &me) {
		t.Fatalf("want max retries, got %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	n, ok := c.Snapshot().Notices[notice.Auth]
	if !ok || !n.Sticky || n.Text != me.Error() {
		t.Fatalf("max retries notice after ttl: %+v %v", n, ok)
	}

	throttled := newTestEnv(t)
	throttled.Deps.NoticeTTL = 20 * time.Millisecond
	throttled.IDP.Throttle = denyThrottle{}
	tc := NewController("p2", throttled.Deps)
	defer tc.Close()
	if err := tc.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	if err := tc.ResendVerification(ctx); !errors.Is(err, identity.ErrTooManyRequests) {
		t.Fatalf("want provider throttle, got %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	n, ok = tc.Snapshot().Notices[notice.Auth]
	if !ok || !n.Sticky || n.Text != msgSendThrottled {
		t.Fatalf("throttled notice after ttl: %+v %v", n, ok)
	}
}

func TestVerifiedUserIsSubscriber(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("b")); err != nil {
		t.Fatal(err)
	}
	e.verifyLatest()
	waitView(t, c, gate.SignedInVerified)
	if err := c.Save(ctx); err != nil {
		t.Fatal(err)
	}
	subs, err := e.Mem.ListSubscribers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || !subs[0].EmailVerified || !reflect.DeepEqual(subs[0].Preferences, []string{"b"}) {
		t.Fatalf("subscribers=%+v", subs)
	}
}

func TestResendWhenVerifiedSkipsProvider(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	e.verifyLatest()
	waitView(t, c, gate.SignedInVerified)
	before := len(e.Pub.Events(queue.KeyVerificationRequested))
	if err := c.ResendVerification(ctx); err != nil {
		t.Fatal(err)
	}
	if after := len(e.Pub.Events(queue.KeyVerificationRequested)); after != before {
		t.Fatalf("verified user got another mail: %d -> %d", before, after)
	}
	snap := c.Snapshot()
	if snap.Verification != nil {
		t.Fatalf("verification panel on verified page: %+v", snap.Verification)
	}
	if n := snap.Notices[notice.Auth]; n.Text != msgAlreadyVerified {
		t.Fatalf("notice=%+v", n)
	}
}

func TestUnverifiedSignInShowsBanner(t *testing.T) {
	e := newTestEnv(t)
	e.Deps.NoticeTTL = 20 * time.Millisecond
	ctx := context.Background()
	c := NewController("p1", e.Deps)
	defer c.Close()

	if err := c.SignUp(ctx, form("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SignIn(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)
	n := waitNotice(t, c, notice.Auth, msgVerifyFirst)
	if !n.Sticky {
		t.Fatalf("banner not sticky: %+v", n)
	}
	if v := c.Snapshot().View; v != gate.SignedInUnverified {
		t.Fatalf("view=%v", v)
	}
}
