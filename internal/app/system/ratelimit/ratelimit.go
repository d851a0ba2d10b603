// Package ratelimit throttles sign-in attempts per client IP and per email.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use. Expired windows are pruned lazily on Allow.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow records one request for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// prune drops expired windows at most once per duration. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.duration {
		return
	}
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
	l.lastPrune = now
}

// SetClock replaces the time source. Used by tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// ClientIP returns the host part of r.RemoteAddr. The router runs chi's
// RealIP middleware first, so proxy headers are already applied.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter applies an IP limit and a per-email limit to sign-in
// attempts. A nil *LoginLimiter allows everything.
type LoginLimiter struct {
	IP    *Limiter
	Email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 attempts per
// email per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		IP:    New(10, time.Minute),
		Email: New(5, 5*time.Minute),
	}
}

// Check records an attempt and returns a rate-limited error when either
// limit is exhausted.
func (ll *LoginLimiter) Check(r *http.Request, email string) error {
	if ll == nil {
		return nil
	}
	if !ll.IP.Allow(ClientIP(r)) {
		return apperr.RateLimited("Too many login attempts. Please wait a minute before trying again.")
	}
	if key := normalize.Email(email); key != "" && !ll.Email.Allow(key) {
		return apperr.RateLimited("Too many login attempts for this account. Please wait a few minutes.")
	}
	return nil
}

// Succeeded clears the email window after a successful sign-in.
func (ll *LoginLimiter) Succeeded(email string) {
	if ll == nil {
		return
	}
	if key := normalize.Email(email); key != "" {
		ll.Email.Reset(key)
	}
}
