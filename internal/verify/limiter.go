// Package verify holds the page-local limits on verification email resends.
package verify

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultCooldown    = 60 * time.Second
	DefaultMaxAttempts = 3
	DefaultResetWindow = time.Hour
)

type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("Please wait %d seconds before requesting another verification email.", ceilSeconds(e.Remaining))
}

type MaxRetriesError struct {
	ResetIn time.Duration
}

func (e *MaxRetriesError) Error() string {
	return "Maximum retries reached. Try again in " + Clock(e.ResetIn) + "."
}

// Limiter is a cooldown plus a bounded attempt counter. The counter resets once
// ResetWindow has passed since the last recorded send. Not safe for concurrent use.
type Limiter struct {
	Cooldown    time.Duration
	MaxAttempts int
	ResetWindow time.Duration

	last     time.Time
	attempts int
}

func NewLimiter(cooldown time.Duration, maxAttempts int, resetWindow time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if resetWindow <= 0 {
		resetWindow = DefaultResetWindow
	}
	return &Limiter{Cooldown: cooldown, MaxAttempts: maxAttempts, ResetWindow: resetWindow}
}

func (l *Limiter) expire(now time.Time) {
	if !l.last.IsZero() && now.Sub(l.last) >= l.ResetWindow {
		l.attempts = 0
	}
}

// Check reports whether a send may go out at now. It does not count the attempt.
func (l *Limiter) Check(now time.Time) error {
	l.expire(now)
	if l.attempts >= l.MaxAttempts {
		return &MaxRetriesError{ResetIn: l.last.Add(l.ResetWindow).Sub(now)}
	}
	if !l.last.IsZero() {
		if since := now.Sub(l.last); since < l.Cooldown {
			return &CooldownError{Remaining: l.Cooldown - since}
		}
	}
	return nil
}

// Record counts a send the provider accepted.
func (l *Limiter) Record(now time.Time) {
	l.expire(now)
	l.attempts++
	l.last = now
}

func (l *Limiter) Attempts() int { return l.attempts }

// CooldownRemaining is zero once a send may go out again.
func (l *Limiter) CooldownRemaining(now time.Time) time.Duration {
	if l.last.IsZero() {
		return 0
	}
	if d := l.Cooldown - now.Sub(l.last); d > 0 {
		return d
	}
	return 0
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// Clock formats d as mm:ss, rounding up.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := ceilSeconds(d)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
