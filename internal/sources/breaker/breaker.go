// Package breaker backs off from sources that keep failing.
//
// Each source key trips after Trip consecutive failures and then stays open
// for an exponentially growing cooldown, capped at MaxDelay. A success closes
// it again. State is forgotten once a key has been quiet for ResetAfter.
package breaker

import (
	"strings"
	"sync"
	"time"
)

type Config struct {
	Trip       int           // default 3; negative disables
	BaseDelay  time.Duration // default 5m
	MaxDelay   time.Duration // default 1h
	ResetAfter time.Duration // default 6h
}

type state struct {
	fails       int
	openUntil   time.Time
	lastFailure time.Time
}

type Breaker struct {
	cfg Config

	mu sync.Mutex
	m  map[string]*state
}

func New(cfg Config) *Breaker {
	if cfg.Trip == 0 {
		cfg.Trip = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Minute
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Hour
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = 6 * time.Hour
	}
	return &Breaker{cfg: cfg, m: make(map[string]*state)}
}

func (b *Breaker) enabled() bool { return b != nil && b.cfg.Trip > 0 }

// get returns the state for key, applying the quiet-period reset.
// Callers hold b.mu.
func (b *Breaker) get(key string, now time.Time) *state {
	st := b.m[key]
	if st == nil {
		st = &state{}
		b.m[key] = st
	}
	if !st.lastFailure.IsZero() && now.Sub(st.lastFailure) > b.cfg.ResetAfter {
		*st = state{}
	}
	return st
}

// Allow reports whether key may be tried at now. When it may not, the second
// result is the end of the cooldown. A nil Breaker allows everything.
func (b *Breaker) Allow(key string, now time.Time) (bool, time.Time) {
	if !b.enabled() {
		return true, time.Time{}
	}
	key = strings.TrimSpace(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.get(key, now)
	if !st.openUntil.IsZero() && now.Before(st.openUntil) {
		return false, st.openUntil
	}
	return true, time.Time{}
}

// Record feeds the outcome of one attempt.
func (b *Breaker) Record(key string, now time.Time, err error) {
	if !b.enabled() {
		return
	}
	key = strings.TrimSpace(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.get(key, now)
	if err == nil {
		*st = state{}
		return
	}
	st.fails++
	st.lastFailure = now
	if st.fails < b.cfg.Trip {
		return
	}

	d := b.cfg.BaseDelay
	for i := 0; i < st.fails-b.cfg.Trip; i++ {
		d *= 2
		if d >= b.cfg.MaxDelay {
			break
		}
	}
	st.openUntil = now.Add(min(d, b.cfg.MaxDelay))
}

// Open lists the keys currently cooling down.
func (b *Breaker) Open(now time.Time) []string {
	if !b.enabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k, st := range b.m {
		if !st.openUntil.IsZero() && now.Before(st.openUntil) {
			out = append(out, k)
		}
	}
	return out
}
