// Package ratelimit implements a per-key cooperative rate limiter, backed
// by golang.org/x/time/rate, for pacing calls into external services such
// as a broker's REST API or WebSocket subscription channel.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limit describes one key's allowance: a token bucket holding at most
// MaxCalls tokens, refilled at MaxCalls per Interval.
type Limit struct {
	MaxCalls int
	Interval float64 // seconds
}

// Limiter enforces a token-bucket limit independently per key. It is not
// a sliding window: when MaxCalls > 1, more than MaxCalls calls can pass
// within one Interval (a full bucket plus the tokens refilled meanwhile).
type Limiter struct {
	mu       sync.Mutex
	limits   map[string]Limit
	limiters map[string]*rate.Limiter
}

// New builds a Limiter from a key -> Limit table. Keys absent from limits
// are unthrottled: Acquire on an unknown key returns immediately.
func New(limits map[string]Limit) *Limiter {
	l := &Limiter{limits: limits, limiters: make(map[string]*rate.Limiter, len(limits))}
	for key, lim := range limits {
		l.limiters[key] = newTokenBucket(lim)
	}
	return l
}

func newTokenBucket(lim Limit) *rate.Limiter {
	perSecond := float64(lim.MaxCalls) / lim.Interval
	return rate.NewLimiter(rate.Limit(perSecond), lim.MaxCalls)
}

// Acquire blocks until key's allowance has capacity, then records the call.
// Keys not registered with New are unthrottled.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	rl, ok := l.limiters[key]
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return rl.Wait(ctx)
}

// Defaults mirrors the venue's default GMO-style request budget: one
// WebSocket subscribe per second, six private GETs per second, one
// private POST per second.
func Defaults() map[string]Limit {
	return map[string]Limit{
		"ws-sub":       {MaxCalls: 1, Interval: 1.0},
		"private-get":  {MaxCalls: 6, Interval: 1.0},
		"private-post": {MaxCalls: 1, Interval: 1.0},
	}
}
