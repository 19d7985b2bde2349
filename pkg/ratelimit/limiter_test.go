package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSlidingWindowAllow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)}
	sw := NewSlidingWindow(3, time.Second)
	sw.now = clock.Now

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow(), "request %d", i+1)
		clock.Advance(100 * time.Millisecond)
	}
	assert.False(t, sw.Allow())

	// the first request leaves the window exactly one second after it started
	clock.Advance(700 * time.Millisecond)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	sw.Reset()
	assert.True(t, sw.Allow())
}

func TestSlidingWindowReserveDelay(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)}
	sw := NewSlidingWindow(1, time.Second)
	sw.now = clock.Now

	_, ok := sw.reserve()
	require.True(t, ok)

	clock.Advance(250 * time.Millisecond)
	delay, ok := sw.reserve()
	assert.False(t, ok)
	assert.Equal(t, 750*time.Millisecond, delay)
}

func TestSlidingWindowWait(t *testing.T) {
	sw := NewSlidingWindow(2, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, sw.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSlidingWindowWaitCanceled(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	require.True(t, sw.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sw.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, sw.requests, 1)
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, PerMinute(0))
	assert.Nil(t, PerMinute(-5))

	sw := PerMinute(30)
	require.NotNil(t, sw)
	assert.Equal(t, time.Minute, sw.windowSize)
	assert.Equal(t, 30, sw.maxRequests)
}
