// Package ratelimit provides per-key token bucket rate limiting for the
// pamem MCP tools.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Limiter is a per-key token bucket. Buckets start full and refill at rate
// tokens per second up to burst. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// NewLimiter creates a limiter refilling at rate tokens per second with the
// given burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes a token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	return l.Reserve(key) == 0
}

// Reserve takes a token for key. It returns zero on success, otherwise how
// long until a token is available. A limiter with no refill returns
// math.MaxInt64 once its burst is spent.
func (l *Limiter) Reserve(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, l.nowFunc())
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	if l.rate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}

// refill returns key's bucket topped up to now. Callers hold l.mu.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), updated: now}
		l.buckets[key] = b
		return b
	}
	if dt := now.Sub(b.updated).Seconds(); dt > 0 {
		b.tokens = math.Min(float64(l.burst), b.tokens+l.rate*dt)
		b.updated = now
	}
	return b
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// Limit is a per-minute budget with a burst allowance.
type Limit struct {
	PerMinute float64
	Burst     int
}

// DefaultToolLimits returns the built-in limits. Excitation mutates the
// network and runs ticks, so it is tighter than the read-only tools.
func DefaultToolLimits() map[string]Limit {
	return map[string]Limit{
		"pam_excite": {PerMinute: 20, Burst: 5},
		"pam_buffer": {PerMinute: 60, Burst: 10},
		"pam_node":   {PerMinute: 60, Burst: 10},
	}
}

// NewToolLimiters creates limiters from limits, falling back to
// DefaultToolLimits when limits is nil.
func NewToolLimiters(limits map[string]Limit) ToolLimiters {
	if limits == nil {
		limits = DefaultToolLimits()
	}
	out := make(ToolLimiters, len(limits))
	for tool, lim := range limits {
		out[tool] = NewLimiter(lim.PerMinute/60.0, lim.Burst)
	}
	return out
}

// LimitError is returned by CheckLimit when a tool is over budget.
type LimitError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter == time.Duration(math.MaxInt64) {
		return fmt.Sprintf("rate limit exceeded for %s", e.Tool)
	}
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s",
		e.Tool, e.RetryAfter.Round(time.Second))
}

// CheckLimit takes a token for toolName. Tools without a limiter are always
// allowed; an exhausted tool yields a *LimitError.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if wait := limiter.Reserve(toolName); wait > 0 {
		return &LimitError{Tool: toolName, RetryAfter: wait}
	}
	return nil
}
