package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHostRateLimiter_NoLimit(t *testing.T) {
	l := New(0)
	start := time.Now()
	for i := 0; i < 5; i++ {
		assert.True(t, l.Wait(context.Background(), "toffeelive.com"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestHostRateLimiter_WaitsBetweenAccesses(t *testing.T) {
	l := New(50 * time.Millisecond)
	assert.True(t, l.Wait(context.Background(), "a"))
	start := time.Now()
	assert.True(t, l.Wait(context.Background(), "a"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	// 其他主机互不影响
	start = time.Now()
	assert.True(t, l.Wait(context.Background(), "b"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestHostRateLimiter_Cancel(t *testing.T) {
	l := New(time.Hour)
	assert.True(t, l.Wait(context.Background(), "a"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, l.Wait(ctx, "a"))
}
