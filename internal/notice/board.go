// Package notice holds the transient status banners of a page.
package notice

import (
	"sync"
	"time"
)

type Scope string

const (
	Auth        Scope = "auth"
	Preferences Scope = "preferences"
)

type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Error   Kind = "error"
)

const DefaultTTL = 5 * time.Second

type Notice struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text"`
	Sticky bool   `json:"sticky,omitempty"`
	seq    uint64
}

// Board keeps at most one notice per scope. A new notice supersedes the old one;
// notices posted with Post clear themselves after TTL, PostSticky ones stay.
type Board struct {
	TTL time.Duration

	mu     sync.Mutex
	seq    uint64
	active map[Scope]Notice
	timers map[Scope]*time.Timer
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{TTL: ttl, active: map[Scope]Notice{}, timers: map[Scope]*time.Timer{}}
}

func (b *Board) Post(scope Scope, kind Kind, text string) { b.post(scope, kind, text, false) }

// PostSticky posts a notice that stays until superseded or cleared.
func (b *Board) PostSticky(scope Scope, kind Kind, text string) { b.post(scope, kind, text, true) }

func (b *Board) post(scope Scope, kind Kind, text string, sticky bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := b.timers[scope]; t != nil {
		t.Stop()
		delete(b.timers, scope)
	}
	b.seq++
	n := Notice{Kind: kind, Text: text, Sticky: sticky, seq: b.seq}
	b.active[scope] = n
	if n.Sticky {
		return
	}
	seq := n.seq
	b.timers[scope] = time.AfterFunc(b.TTL, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.active[scope]; ok && cur.seq == seq {
			delete(b.active, scope)
			delete(b.timers, scope)
		}
	})
}

func (b *Board) Clear(scope Scope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := b.timers[scope]; t != nil {
		t.Stop()
		delete(b.timers, scope)
	}
	delete(b.active, scope)
}

func (b *Board) Get(scope Scope) (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.active[scope]
	return n, ok
}

func (b *Board) Snapshot() map[Scope]Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[Scope]Notice, len(b.active))
	for k, v := range b.active {
		out[k] = v
	}
	return out
}

// Close stops all pending dismiss timers.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, t := range b.timers {
		t.Stop()
		delete(b.timers, k)
	}
}
