// Package ratelimit paces the outbound requests of a run.
//
// A SlidingWindow admits at most N requests in any window of a fixed length.
// The fetch client waits on it before every request, so a long sequential run
// against a museum API or a gallery site stays under the published request
// budget:
//
//	limiter := ratelimit.PerMinute(60)
//	client.SetLimiter(limiter)
//
// Wait honors context cancellation, so an interrupted run never sleeps out
// the remainder of a window.
package ratelimit
