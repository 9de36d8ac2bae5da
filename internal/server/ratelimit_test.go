package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRateLimiter(10 * time.Second)
	rl.now = func() time.Time { return now }

	ok, wait := rl.Allow("a")
	assert.True(t, ok)
	assert.Zero(t, wait)

	now = now.Add(4 * time.Second)
	ok, wait = rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 6*time.Second, wait)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(6 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	rl.Allow("c")
	assert.Len(t, rl.lastSeen, 1, "stale keys are pruned")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("a")
		assert.True(t, ok)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("POST", "/admin/scan", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	assert.Equal(t, "203.0.113.7", clientKey(req))

	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", clientKey(req))
}
