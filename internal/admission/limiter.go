// Package admission gates requests before any core logic runs: windowed
// per-client rate limiting and the shared upload secret.
package admission

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// client is one tracked remote address.
type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter is a token-bucket limiter keyed by client address. State is
// process-local and windowed; idle entries are swept out in-line during
// Allow, so the limiter owns no background goroutine.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client

	limit rate.Limit
	burst int
	ttl   time.Duration

	lastSweep time.Time
}

// NewLimiter allows up to max requests per window for each key.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		clients:   map[string]*client{},
		limit:     rate.Every(window / time.Duration(max)),
		burst:     max,
		ttl:       window,
		lastSweep: time.Now(),
	}
}

// Allow reports whether the keyed client may proceed and consumes one token
// if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweepLocked(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.limiter.AllowN(now, 1)
}

// sweepLocked drops entries idle for longer than the window. Running at
// most once per window keeps Allow O(1) amortized.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for key, c := range l.clients {
		if now.Sub(c.seen) > l.ttl {
			delete(l.clients, key)
		}
	}
}

// Len reports the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
