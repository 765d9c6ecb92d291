package notice

import (
	"testing"
	"time"
)

func waitGone(b *Board, scope Scope, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if _, ok := b.Get(scope); !ok {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestAutoDismiss(t *testing.T) {
	b := NewBoard(20 * time.Millisecond)
	defer b.Close()
	b.Post(Preferences, Success, "Preferences saved successfully!")
	if n, ok := b.Get(Preferences); !ok || n.Sticky {
		t.Fatalf("notice=%+v ok=%v", n, ok)
	}
	if !waitGone(b, Preferences, time.Second) {
		t.Fatal("notice not dismissed")
	}
}

func TestStickyNoticePersists(t *testing.T) {
	b := NewBoard(10 * time.Millisecond)
	defer b.Close()
	b.PostSticky(Auth, Error, "Maximum retries reached. Try again in 59:00.")
	time.Sleep(40 * time.Millisecond)
	n, ok := b.Get(Auth)
	if !ok || !n.Sticky {
		t.Fatalf("sticky notice dismissed: %+v %v", n, ok)
	}

	b.Post(Auth, Error, "Wrong password.")
	if n, _ := b.Get(Auth); n.Text != "Wrong password." {
		t.Fatalf("not superseded: %+v", n)
	}
	if !waitGone(b, Auth, time.Second) {
		t.Fatal("superseding notice not dismissed")
	}
}

func TestSupersededTimerDoesNotClearNewNotice(t *testing.T) {
	b := NewBoard(30 * time.Millisecond)
	defer b.Close()
	b.Post(Auth, Error, "first")
	time.Sleep(20 * time.Millisecond)
	b.Post(Auth, Error, "second")
	time.Sleep(20 * time.Millisecond)
	if n, ok := b.Get(Auth); !ok || n.Text != "second" {
		t.Fatalf("notice=%+v ok=%v", n, ok)
	}
	if _, ok := b.Get(Preferences); ok {
		t.Fatal("scopes leaked")
	}
}

func TestStickinessIsExplicit(t *testing.T) {
	b := NewBoard(10 * time.Millisecond)
	defer b.Close()
	// text alone never makes a notice sticky
	b.Post(Auth, Info, "Verification email sent!")
	if n, _ := b.Get(Auth); n.Sticky {
		t.Fatalf("plain post became sticky: %+v", n)
	}
	if !waitGone(b, Auth, time.Second) {
		t.Fatal("plain notice not dismissed")
	}
}
