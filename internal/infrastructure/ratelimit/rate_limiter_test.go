package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBurst(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("u1", ActionSendMessage)
		assert.True(t, ok)
	}

	ok, wait := rl.Allow("u1", ActionSendMessage)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = rl.Allow("u2", ActionSendMessage)
	assert.True(t, ok, "buckets are per user")
}

func TestCleanupDropsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Allow("u1", ActionSendMessage)
	assert.Less(t, rl.Tokens("u1", ActionSendMessage), 1.0)

	rl.Cleanup(-time.Second)

	assert.Equal(t, 1.0, rl.Tokens("u1", ActionSendMessage))
}
