package trading

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one golang.org/x/time/rate.Limiter per user,
// lazily, the same keyed-registry shape as LockRegistry. It throttles
// inbound trade submissions per user. An unconfigured limiter (rps <= 0)
// always allows.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(ratePerSec), burst: burst}
}

// Allow reports whether user may submit another trade right now. Always
// true when the limiter was constructed with a non-positive rate.
func (r *RateLimiter) Allow(user string) bool {
	if r.rps <= 0 {
		return true
	}

	r.mu.Lock()
	if r.limiters == nil {
		r.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := r.limiters[user]
	if !ok {
		l = rate.NewLimiter(r.rps, r.burst)
		r.limiters[user] = l
	}
	r.mu.Unlock()

	return l.Allow()
}
