package crm

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a blocking token bucket limiter. Every CRM request
// takes one token; when the bucket is empty callers sleep until the
// refill makes the next token available. The queue depth is capped so
// a stuck upstream cannot pile up unbounded waiters.
type TokenBucket struct {
	rate       float64 // tokens per second
	burst      int
	tokens     float64
	lastUpdate time.Time
	waiting    int
	maxWaiting int
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket sized for perMinute requests per
// minute. The bucket starts full.
func NewTokenBucket(perMinute, maxWaiting int) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 45
	}
	if maxWaiting <= 0 {
		maxWaiting = 256
	}
	return &TokenBucket{
		rate:       float64(perMinute) / 60.0,
		burst:      perMinute,
		tokens:     float64(perMinute),
		lastUpdate: time.Now(),
		maxWaiting: maxWaiting,
	}
}

// Wait blocks until a token is available or ctx is done. It returns
// ErrRateLimitExhausted when the waiter queue is already full.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	tb.mu.Lock()
	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		tb.mu.Unlock()
		return nil
	}
	if tb.waiting >= tb.maxWaiting {
		tb.mu.Unlock()
		return ErrRateLimitExhausted
	}
	tb.waiting++
	// time until one full token accrues
	delay := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	tb.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		tb.mu.Lock()
		tb.waiting--
		tb.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
	}

	tb.mu.Lock()
	tb.waiting--
	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
	} else {
		tb.tokens = 0
	}
	tb.mu.Unlock()
	return nil
}

// Tokens returns the current token count, for tests and stats.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// caller must hold mu
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastUpdate).Seconds()
	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now
}
