package gateway

import (
	"sync"
	"time"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/metrics"
)

const (
	rateLimitMax    = 100
	rateLimitWindow = 60 * time.Second
)

// bucket is one principal's sliding request window (spec §4.9/§5 "per
// principal rate bucket; compare-and-set on expiry").
type bucket struct {
	count     int
	windowEnd time.Time
}

// rateLimiter is a token-bucket-by-window limiter keyed on principal id.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{buckets: make(map[string]*bucket)}
}

// Allow consumes one request from principal's bucket, resetting the window
// if it has elapsed, and returns KindRateLimited once the 100/60s cap is hit.
func (r *rateLimiter) Allow(principal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	b, ok := r.buckets[principal]
	if !ok || now.After(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(rateLimitWindow)}
		r.buckets[principal] = b
	}
	if b.count >= rateLimitMax {
		metrics.RateLimited.Inc()
		return apperr.New(apperr.KindRateLimited, "")
	}
	b.count++
	return nil
}
