package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// newCache builds a cache whose entries keep the TTL they were given on
// insertion. Reading an entry never extends it.
func newCache[V any](ttl time.Duration) *ttlcache.Cache[string, V] {
	return ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

// RevocationList remembers logged-out token IDs until the tokens expire.
type RevocationList struct {
	items *ttlcache.Cache[string, struct{}]
	now   func() time.Time
}

// NewRevocationList creates an empty RevocationList.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		items: newCache[struct{}](ttlcache.NoTTL),
		now:   time.Now,
	}
}

// Revoke marks jti as revoked until expiresAt. Tokens that already expired
// are ignored since validation rejects them anyway.
func (r *RevocationList) Revoke(jti string, expiresAt time.Time) {
	ttl := expiresAt.Sub(r.now())
	if jti == "" || ttl <= 0 {
		return
	}
	r.items.Set(jti, struct{}{}, ttl)
}

// IsRevoked reports whether jti was revoked and has not yet expired.
func (r *RevocationList) IsRevoked(jti string) bool {
	return r.items.Get(jti) != nil
}

// Start runs the expired-entry cleanup loop in a new goroutine.
func (r *RevocationList) Start() { go r.items.Start() }

// Stop ends the cleanup loop. It blocks unless Start was called first.
func (r *RevocationList) Stop() { r.items.Stop() }

// LoginLimiter locks an account out after repeated failed logins. The
// failure counter lives for the lockout window, counted from the latest
// failure.
type LoginLimiter struct {
	mu          sync.Mutex
	failures    *ttlcache.Cache[string, int]
	maxFailures int
}

// NewLoginLimiter creates a limiter that locks a key for lockout once it
// has failed maxFailures times in a row.
func NewLoginLimiter(maxFailures int, lockout time.Duration) *LoginLimiter {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &LoginLimiter{
		failures:    newCache[int](lockout),
		maxFailures: maxFailures,
	}
}

// Locked reports whether key is currently locked out.
func (l *LoginLimiter) Locked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	item := l.failures.Get(key)
	return item != nil && item.Value() >= l.maxFailures
}

// Fail records a failed attempt and reports whether key is now locked.
func (l *LoginLimiter) Fail(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 1
	if item := l.failures.Get(key); item != nil {
		count = item.Value() + 1
	}
	l.failures.Set(key, count, ttlcache.DefaultTTL)
	return count >= l.maxFailures
}

// Reset forgets the failures of key after a successful login.
func (l *LoginLimiter) Reset(key string) {
	l.failures.Delete(key)
}

// Start runs the expired-entry cleanup loop in a new goroutine.
func (l *LoginLimiter) Start() { go l.failures.Start() }

// Stop ends the cleanup loop. It blocks unless Start was called first.
func (l *LoginLimiter) Stop() { l.failures.Stop() }

// Throttle admits one call per key per window.
type Throttle struct {
	mu     sync.Mutex
	seen   *ttlcache.Cache[string, time.Time]
	window time.Duration
}

// NewThrottle creates a Throttle. A non-positive window admits every call.
func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{
		seen:   newCache[time.Time](window),
		window: window,
	}
}

// Allow reports whether key may proceed and, if so, starts a new window.
func (t *Throttle) Allow(key string) bool {
	if t.window <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen.Get(key) != nil {
		return false
	}
	t.seen.Set(key, time.Now(), ttlcache.DefaultTTL)
	return true
}

// Release ends key's window early, for requests that failed before doing
// any work.
func (t *Throttle) Release(key string) {
	t.seen.Delete(key)
}

// Start runs the expired-entry cleanup loop in a new goroutine.
func (t *Throttle) Start() { go t.seen.Start() }

// Stop ends the cleanup loop. It blocks unless Start was called first.
func (t *Throttle) Stop() { t.seen.Stop() }
