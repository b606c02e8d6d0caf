package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevocationList(t *testing.T) {
	t.Parallel()

	r := NewRevocationList()

	r.Revoke("jti-1", time.Now().Add(time.Minute))
	assert.True(t, r.IsRevoked("jti-1"))
	assert.False(t, r.IsRevoked("jti-2"))

	t.Run("already expired tokens are not stored", func(t *testing.T) {
		r.Revoke("old", time.Now().Add(-time.Second))
		assert.False(t, r.IsRevoked("old"))
	})

	t.Run("empty id is ignored", func(t *testing.T) {
		r.Revoke("", time.Now().Add(time.Minute))
		assert.False(t, r.IsRevoked(""))
	})

	t.Run("entry expires with the token", func(t *testing.T) {
		r.Revoke("short", time.Now().Add(30*time.Millisecond))
		assert.True(t, r.IsRevoked("short"))
		time.Sleep(60 * time.Millisecond)
		assert.False(t, r.IsRevoked("short"))
	})
}

func TestLoginLimiter(t *testing.T) {
	t.Parallel()

	l := NewLoginLimiter(3, time.Minute)

	assert.False(t, l.Locked("a@example.com"))
	assert.False(t, l.Fail("a@example.com"))
	assert.False(t, l.Fail("a@example.com"))
	assert.False(t, l.Locked("a@example.com"))
	assert.True(t, l.Fail("a@example.com"))
	assert.True(t, l.Locked("a@example.com"))

	assert.False(t, l.Locked("b@example.com"), "keys are independent")

	l.Reset("a@example.com")
	assert.False(t, l.Locked("a@example.com"))
}

func TestLoginLimiter_LockoutExpires(t *testing.T) {
	t.Parallel()

	l := NewLoginLimiter(1, 30*time.Millisecond)
	assert.True(t, l.Fail("user"))
	assert.True(t, l.Locked("user"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, l.Locked("user"))
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	th := NewThrottle(30 * time.Millisecond)

	assert.True(t, th.Allow("u1"))
	assert.False(t, th.Allow("u1"))
	assert.True(t, th.Allow("u2"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, th.Allow("u1"), "window elapsed")

	th.Release("u1")
	assert.True(t, th.Allow("u1"), "released key is admitted again")
}

func TestThrottle_Disabled(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0)
	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow("u"))
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	r := NewRevocationList()
	r.Start()
	r.Stop()

	l := NewLoginLimiter(1, time.Second)
	l.Start()
	l.Stop()

	th := NewThrottle(time.Second)
	th.Start()
	th.Stop()
}
