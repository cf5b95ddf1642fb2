package auth

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = time.Minute
)

// LockedError reports how long a locked account must wait.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %d seconds", int(e.Remaining.Round(time.Second).Seconds()))
}

type attempts struct {
	failures    int
	lockedUntil time.Time
}

// LoginGuard locks an account after repeated failed logins.
type LoginGuard struct {
	mu          sync.Mutex
	maxAttempts int
	lockFor     time.Duration
	entries     map[string]*attempts
	now         func() time.Time
}

func NewLoginGuard(maxAttempts int, lockFor time.Duration) *LoginGuard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockFor <= 0 {
		lockFor = DefaultLockDuration
	}
	return &LoginGuard{
		maxAttempts: maxAttempts,
		lockFor:     lockFor,
		entries:     make(map[string]*attempts),
		now:         time.Now,
	}
}

// Allow returns a *LockedError while the key is locked.
func (g *LoginGuard) Allow(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		return nil
	}
	now := g.now()
	if e.lockedUntil.After(now) {
		return &LockedError{Remaining: e.lockedUntil.Sub(now)}
	}
	if !e.lockedUntil.IsZero() {
		delete(g.entries, key)
	}
	return nil
}

// Failure records a failed attempt and returns the attempts left before lock.
func (g *LoginGuard) Failure(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e = &attempts{}
		g.entries[key] = e
	}
	e.failures++
	if e.failures >= g.maxAttempts {
		e.lockedUntil = g.now().Add(g.lockFor)
		return 0
	}
	return g.maxAttempts - e.failures
}

func (g *LoginGuard) Success(key string) {
	g.mu.Lock()
	delete(g.entries, key)
	g.mu.Unlock()
}
