// Package ratelimit paces outbound requests to the quote providers.
// Free market-data endpoints throttle aggressively, so on top of a
// steady token rate the limiter carries an escalating penalty that is
// applied after throttling responses and cleared after successes.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	basePenalty = 200 * time.Millisecond
	maxPenalty  = time.Minute
)

// Limiter paces requests for one provider.
type Limiter struct {
	name    string
	limiter *rate.Limiter

	mu      sync.Mutex
	penalty time.Duration
}

// New creates a limiter allowing perMinute requests with a small burst.
func New(name string, perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

// Name returns the provider name this limiter paces.
func (l *Limiter) Name() string { return l.name }

// Wait blocks until the next request may proceed. Any penalty from a
// recent throttling response is served first; both phases honour ctx.
func (l *Limiter) Wait(ctx context.Context) error {
	if p := l.Penalty(); p > 0 {
		timer := time.NewTimer(p)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.Penalty() == 0 && l.limiter.Allow()
}

// Throttled records a throttling response (HTTP 429 or an equivalent
// body) and doubles the penalty up to a ceiling.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.penalty == 0 {
		l.penalty = basePenalty
		return
	}
	l.penalty *= 2
	if l.penalty > maxPenalty {
		l.penalty = maxPenalty
	}
}

// Succeeded clears the penalty after a successful request.
func (l *Limiter) Succeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.penalty = 0
}

// Penalty returns the current penalty duration.
func (l *Limiter) Penalty() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.penalty
}
