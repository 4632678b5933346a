package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(3, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastCheck = now

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "frame %d within burst", i)
	}
	assert.False(t, rl.allow())

	now = now.Add(time.Second / 2)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow())
	}
	assert.False(t, rl.allow(), "tokens never exceed the burst")
}

func TestRateLimiter_DisabledAllowsEverything(t *testing.T) {
	rl := newRateLimiter(0, time.Second)
	assert.Nil(t, rl)
	for i := 0; i < 1000; i++ {
		assert.True(t, rl.allow())
	}
}
