package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outbound requests
type Limiter interface {
	// Allow reports whether a request may start now and records it if so
	Allow() bool
	// Wait blocks until a request may start or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets every recorded request
	Reset()
}

// SlidingWindow admits at most maxRequests requests in any window of the
// given size
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a limiter allowing maxRequests per windowSize
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// PerMinute returns a limiter for n requests a minute, or nil when n is not
// positive
func PerMinute(n int) *SlidingWindow {
	if n <= 0 {
		return nil
	}
	return NewSlidingWindow(n, time.Minute)
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	_, ok := sw.reserve()
	return ok
}

// Wait blocks until a request is allowed. It returns ctx.Err() when ctx is
// done first; no request is recorded in that case.
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		delay, ok := sw.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// reserve records a request when the window has room and otherwise returns
// how long until the oldest request leaves the window
func (sw *SlidingWindow) reserve() (time.Duration, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return 0, true
	}

	delay := sw.windowSize - now.Sub(sw.requests[0])
	if delay <= 0 {
		delay = time.Millisecond
	}
	return delay, false
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
