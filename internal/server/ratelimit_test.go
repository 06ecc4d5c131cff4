package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	// One token every 30s.
	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestRateLimiterReportsWait(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.reserve("a"))
	wait := l.reserve("a")
	assert.Greater(t, wait, 50*time.Second)
	assert.LessOrEqual(t, wait, time.Minute)
}

func TestRateLimiterPrunesIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(5)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * idleLimiterTTL)
	l.Allow("b")

	assert.NotContains(t, l.limiters, "a")
	assert.Contains(t, l.limiters, "b")
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(0)
	assert.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}
