package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetThrottle(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	throttle := newResetThrottle(2, time.Hour, func() time.Time { return now })

	assert.True(t, throttle.Allow("a@example.com"))
	assert.True(t, throttle.Allow("a@example.com"))
	assert.False(t, throttle.Allow("a@example.com"))
	assert.True(t, throttle.Allow("b@example.com"))

	now = now.Add(30 * time.Minute)
	assert.True(t, throttle.Allow("a@example.com"))
	assert.False(t, throttle.Allow("a@example.com"))
}

func TestResetThrottleDisabled(t *testing.T) {
	assert.Nil(t, newResetThrottle(0, time.Hour, nil))
	assert.Nil(t, newResetThrottle(3, 0, nil))

	var throttle *resetThrottle
	for range 10 {
		assert.True(t, throttle.Allow("a@example.com"))
	}
}

func TestResetThrottleEvictsIdleKeys(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	throttle := newResetThrottle(1, time.Hour, func() time.Time { return now })

	for i := range 500 {
		throttle.Allow(fmt.Sprintf("user-%d@example.com", i))
	}
	assert.Equal(t, 500, throttle.size())

	now = now.Add(30 * time.Minute)
	assert.False(t, throttle.Allow("user-0@example.com"), "still inside the window")
	assert.Equal(t, 500, throttle.size())

	now = now.Add(45 * time.Minute)
	assert.True(t, throttle.Allow("fresh@example.com"))
	assert.Equal(t, 2, throttle.size(), "only keys seen within the window survive")
}
