package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSlidingWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"), "keys are independent")
	assert.True(t, l.Allow(""), "anonymous requests are not limited")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("u1"), "window slid past old requests")
}

func TestAllowStrictUsesOwnBucket(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	assert.True(t, l.AllowStrict("10.0.0.1", 1, time.Minute))
	assert.False(t, l.AllowStrict("10.0.0.1", 1, time.Minute))
	assert.True(t, l.Allow("10.0.0.1"))
	l.Stop()
}
