// Package ratelimit provides per-source token-bucket limiting for bar
// providers.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per source name so a chatty instrument
// cannot starve the others.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter issuing rps tokens per second with the given
// burst capacity per source.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) get(source string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[source]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[source]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[source] = limiter
	return limiter
}

// Allow reports whether a request for the source may proceed now.
func (l *Limiter) Allow(source string) bool {
	return l.get(source).Allow()
}

// Wait blocks until a token is available or the context ends.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	return l.get(source).Wait(ctx)
}
